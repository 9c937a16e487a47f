package warmer

import (
	"time"
)

// Config holds the warming engine configuration. Every recognized option
// is an explicit field with an explicit default; unknown knobs do not
// exist.
type Config struct {
	// BatchSize is the number of work keys per page. Individual warms can
	// be slow, so the default is deliberately small.
	BatchSize int

	// MaxConcurrentRequests is the concurrency ceiling for edge warming.
	// Values below 1 are clamped to 1. Render warming ignores this and is
	// always sequential.
	MaxConcurrentRequests int

	// SleepBetweenBatches pauses once after each warmed batch (not per
	// wave) before control returns to the driver. Throttles total request
	// rate at the edge, not within-batch concurrency.
	SleepBetweenBatches time.Duration

	// ConnectTimeout bounds each outbound warm request.
	ConnectTimeout time.Duration

	// InsecureSkipTLSVerify disables TLS certificate verification for
	// warm requests. Only for local or self-signed test origins.
	InsecureSkipTLSVerify bool

	// CanonicalHost, when set, replaces the host of every warm URL so
	// edge-cache keys match real user traffic even when upstream URL
	// generation embeds an internal hostname. When empty, URLs are used
	// verbatim.
	CanonicalHost string

	// UserAgent is sent with every warm request.
	UserAgent string

	// RunID overrides the generated run identifier. Set it when resuming
	// an interrupted run, so the new instance reads and writes the same
	// persisted cursor state. Empty means a fresh run with a fresh ID.
	RunID string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:             5,
		MaxConcurrentRequests: 5,
		SleepBetweenBatches:   0,
		ConnectTimeout:        10 * time.Second,
		InsecureSkipTLSVerify: false,
		UserAgent:             "cache-warmer/1.0",
	}
}

// withDefaults fills unset fields with their defaults and clamps invalid
// values. Validated once at construction; the engine never re-checks.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.MaxConcurrentRequests < 1 {
		c.MaxConcurrentRequests = 1
	}
	if c.SleepBetweenBatches < 0 {
		c.SleepBetweenBatches = 0
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	return c
}
