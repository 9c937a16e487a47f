package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/edgewarm/cache-warmer/pkg/rendercache"
	"github.com/edgewarm/cache-warmer/pkg/variant"
	"github.com/edgewarm/cache-warmer/pkg/warmer"
)

// Account is an in-memory warmer.Account.
type Account struct {
	AccountID string
	RoleNames []string
}

func (a *Account) ID() string      { return a.AccountID }
func (a *Account) Roles() []string { return a.RoleNames }

// Item is an in-memory warmer.Item.
type Item struct {
	ItemID string
	URL    string
	Public bool
	// ViewRoles lists roles that may view a non-public item.
	ViewRoles []string
}

func (it *Item) ID() string           { return it.ItemID }
func (it *Item) CanonicalURL() string { return it.URL }

func (it *Item) ViewableBy(account warmer.Account) bool {
	if it.Public {
		return true
	}
	if account == nil {
		return false
	}
	for _, have := range account.Roles() {
		for _, want := range it.ViewRoles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Store is an in-memory warmer.ItemStore. Items can be removed after
// enumeration to exercise resolution-drift behavior.
type Store struct {
	mu    sync.Mutex
	order []string
	items map[string]*Item
}

// NewStore creates a store holding items in the given order.
func NewStore(items ...*Item) *Store {
	s := &Store{items: make(map[string]*Item, len(items))}
	for _, it := range items {
		s.order = append(s.order, it.ItemID)
		s.items[it.ItemID] = it
	}
	return s
}

// Add appends an item. Used by tests to mutate the catalog mid-run and
// assert that the work-set snapshot does not change.
func (s *Store) Add(it *Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, it.ItemID)
	s.items[it.ItemID] = it
}

// Remove deletes an item so subsequent Resolve calls miss.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

func (s *Store) Query(ctx context.Context, accessCheck bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.order))
	for _, id := range s.order {
		it, ok := s.items[id]
		if !ok {
			continue
		}
		if accessCheck && !it.ViewableBy(nil) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) Resolve(ctx context.Context, id string) (warmer.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, warmer.ErrNotFound)
	}
	return it, nil
}

// Variants is a static variant.Source.
type Variants []variant.Variant

func (v Variants) ListVariants(ctx context.Context) ([]variant.Variant, error) {
	return v, nil
}

// Selector is an in-memory warmer.AccountSelector over a fixed account
// pool. An account qualifies for a role set when it holds every role.
type Selector struct {
	Accounts []*Account
}

func (s *Selector) Select(ctx context.Context, roles []string, ok func(warmer.Account) bool) (warmer.Account, error) {
	for _, a := range s.Accounts {
		if holdsAll(a, roles) && ok(a) {
			return a, nil
		}
	}
	return nil, warmer.ErrNoViewer
}

func holdsAll(a *Account, roles []string) bool {
	for _, want := range roles {
		found := false
		for _, have := range a.RoleNames {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Impersonator is a warmer.Impersonator that records the active viewer
// as an explicit stack, so tests can assert the context is restored to
// its pre-call state after every warm, including failed ones.
type Impersonator struct {
	mu    sync.Mutex
	stack []warmer.Account

	// Switches counts SwitchTo calls.
	Switches int

	// FailFor makes SwitchTo fail for this account ID.
	FailFor string
}

// Current returns the active viewer, or nil when no impersonation is
// active.
func (im *Impersonator) Current() warmer.Account {
	im.mu.Lock()
	defer im.mu.Unlock()
	if len(im.stack) == 0 {
		return nil
	}
	return im.stack[len(im.stack)-1]
}

// Depth returns the impersonation nesting depth.
func (im *Impersonator) Depth() int {
	im.mu.Lock()
	defer im.mu.Unlock()
	return len(im.stack)
}

func (im *Impersonator) SwitchTo(account warmer.Account) (func(), error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if im.FailFor != "" && account != nil && account.ID() == im.FailFor {
		return nil, fmt.Errorf("switch to %s refused", account.ID())
	}

	im.Switches++
	im.stack = append(im.stack, account)

	return func() {
		im.mu.Lock()
		defer im.mu.Unlock()
		im.stack = im.stack[:len(im.stack)-1]
	}, nil
}

// Renderer is a warmer.Renderer that renders deterministic output and
// stores it in a render cache, mimicking a render pipeline whose own
// cache is the warm target. Failures and empty output are injectable
// per item.
type Renderer struct {
	Cache        *rendercache.Cache
	Impersonator *Impersonator

	mu      sync.Mutex
	renders int

	// FailFor makes RenderFull return an error for this item ID.
	FailFor string

	// EmptyFor makes RenderFull return empty output for this item ID.
	EmptyFor string
}

// Renders returns the number of RenderFull calls.
func (r *Renderer) Renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders
}

func (r *Renderer) RenderFull(ctx context.Context, item warmer.Item) ([]byte, error) {
	r.mu.Lock()
	r.renders++
	r.mu.Unlock()

	if item.ID() == r.FailFor {
		return nil, fmt.Errorf("render pipeline failure for %s", item.ID())
	}
	if item.ID() == r.EmptyFor {
		return nil, nil
	}

	out := []byte("<html>" + item.ID() + "</html>")

	if r.Cache != nil {
		hash := ""
		if r.Impersonator != nil {
			if viewer := r.Impersonator.Current(); viewer != nil {
				hash = variant.HashRoles(viewer.Roles())
			}
		}
		r.Cache.Set(rendercache.Key{ItemID: item.ID(), VariantHash: hash}, out)
	}

	return out, nil
}
