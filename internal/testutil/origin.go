// Package testutil provides testing utilities for the cache warmer: a
// configurable mock origin server and in-memory fakes for the
// collaborator interfaces.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// OriginResponse defines the behavior for a mock origin path.
type OriginResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockOrigin is a configurable origin server for warm-request tests. It
// tracks request counts and the peak number of concurrently in-flight
// requests, which is how tests verify the dispatcher's concurrency
// ceiling end to end.
type MockOrigin struct {
	server *httptest.Server

	mu        sync.Mutex
	responses map[string]OriginResponse
	hits      map[string]int
	total     int
	inFlight  int
	peak      int
}

// NewMockOrigin creates a mock origin. Unconfigured paths answer 200
// with a small body.
func NewMockOrigin() *MockOrigin {
	m := &MockOrigin{
		responses: make(map[string]OriginResponse),
		hits:      make(map[string]int),
	}

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.total++
		m.hits[r.URL.Path]++
		m.inFlight++
		if m.inFlight > m.peak {
			m.peak = m.inFlight
		}
		resp, ok := m.responses[r.URL.Path]
		m.mu.Unlock()

		defer func() {
			m.mu.Lock()
			m.inFlight--
			m.mu.Unlock()
		}()

		if !ok {
			resp = OriginResponse{StatusCode: http.StatusOK, Body: "ok"}
		}
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}))

	return m
}

// URL returns the origin base URL.
func (m *MockOrigin) URL() string {
	return m.server.URL
}

// Host returns the origin host:port, usable as a canonical-host rewrite
// target.
func (m *MockOrigin) Host() string {
	return m.server.Listener.Addr().String()
}

// Close shuts down the origin.
func (m *MockOrigin) Close() {
	m.server.Close()
}

// SetResponse configures the response for a path.
func (m *MockOrigin) SetResponse(path string, resp OriginResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = resp
}

// RequestCount returns the total number of requests served.
func (m *MockOrigin) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// Hits returns the number of requests for one path.
func (m *MockOrigin) Hits(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[path]
}

// PeakInFlight returns the maximum number of requests that were in
// flight simultaneously.
func (m *MockOrigin) PeakInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}
