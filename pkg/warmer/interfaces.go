package warmer

import (
	"context"
)

// Item is a resolved content item eligible for warming.
type Item interface {
	// ID returns the stable item identifier.
	ID() string

	// CanonicalURL returns the absolute URL the item is served under.
	CanonicalURL() string

	// ViewableBy reports whether account may view the item. A nil account
	// is the anonymous viewer.
	ViewableBy(account Account) bool
}

// Account is a concrete user account used as an impersonation target.
type Account interface {
	// ID returns the stable account identifier.
	ID() string

	// Roles returns the role names held by the account.
	Roles() []string
}

// ItemStore is the content-entity query boundary. Implementations
// encapsulate existence, publication, and coarse access filtering.
type ItemStore interface {
	// Query returns the ordered identifiers of items eligible for
	// warming. When accessCheck is true, eligibility includes an access
	// filter for the anonymous viewer; when false, access filtering is
	// skipped so non-interactive automation sees the full publishable
	// set. Both policies are used, deliberately: edge warming checks
	// access, render warming does not.
	Query(ctx context.Context, accessCheck bool) ([]string, error)

	// Resolve loads a single item. Returns ErrNotFound when the
	// identifier no longer resolves.
	Resolve(ctx context.Context, id string) (Item, error)
}

// AccountSelector picks one representative account for a viewer variant.
type AccountSelector interface {
	// Select returns an account that holds exactly the given role set and
	// satisfies ok. Returns ErrNoViewer when no such account exists.
	Select(ctx context.Context, roles []string, ok func(Account) bool) (Account, error)
}

// Impersonator switches the process-wide active viewer. At most one
// impersonation context may be active at any instant; callers must invoke
// the returned restore function before starting another switch.
type Impersonator interface {
	// SwitchTo makes account the active viewer and returns a function
	// that reinstates the previous viewer.
	SwitchTo(account Account) (restore func(), err error)
}

// Renderer produces full rendered output for an item under the currently
// impersonated viewer. The render pipeline's own cache is the side effect
// render warming exists for; this engine holds no cache of its own.
type Renderer interface {
	RenderFull(ctx context.Context, item Item) ([]byte, error)
}
