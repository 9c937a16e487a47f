package warmer

import (
	"errors"
	"fmt"
)

// Sentinel errors used across the warming engine.
var (
	// ErrNotFound indicates an item identifier that no longer resolves.
	// Expected steady-state condition (content deleted between
	// enumeration and warming); loaders drop such keys silently.
	ErrNotFound = errors.New("item not found")

	// ErrAccessDenied indicates an item that failed the final access
	// re-check after resolving. Dropped silently, like ErrNotFound.
	ErrAccessDenied = errors.New("item not viewable")

	// ErrNoViewer indicates that no representative account exists for a
	// viewer variant. Not a failure: there is nothing to warm.
	ErrNoViewer = errors.New("no eligible viewer account")
)

// TransportError represents a failed edge warm request: a network or
// timeout error, or an HTTP status >= 400.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("warm request %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("warm request %s failed: status %d", e.URL, e.StatusCode)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// RenderError represents a failed render warm: the render call raised an
// error or produced empty output.
type RenderError struct {
	ItemID      string
	VariantHash string
	Err         error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render warm item %s variant %s failed: %v", e.ItemID, e.VariantHash, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// isDrop reports whether err is an expected load-time condition that
// silently removes the key from the batch instead of being reported.
func isDrop(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAccessDenied) ||
		errors.Is(err, ErrNoViewer)
}
