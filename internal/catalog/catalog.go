// Package catalog provides a manifest-backed item store for the
// warm-runner: a JSON file listing the items to warm, their canonical
// URLs, and their visibility. Production deployments implement
// warmer.ItemStore against their content backend instead.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/edgewarm/cache-warmer/pkg/variant"
	"github.com/edgewarm/cache-warmer/pkg/warmer"
)

// Entry is one manifest row.
type Entry struct {
	// ID is the stable item identifier.
	ID string `json:"id"`

	// URL is the item's canonical URL.
	URL string `json:"url"`

	// Public marks the item viewable by the anonymous viewer.
	Public bool `json:"public"`

	// Roles lists role names that may view a non-public item. Ignored
	// when Public is true.
	Roles []string `json:"roles,omitempty"`
}

// Store is an in-memory warmer.ItemStore loaded from a manifest.
type Store struct {
	entries []Entry
	byID    map[string]Entry
}

// Load reads a JSON manifest file: an array of entries.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	return FromEntries(entries)
}

// FromEntries builds a store from already-parsed entries.
func FromEntries(entries []Entry) (*Store, error) {
	byID := make(map[string]Entry, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("manifest entry %d: missing id", i)
		}
		if e.URL == "" {
			return nil, fmt.Errorf("manifest entry %q: missing url", e.ID)
		}
		if _, dup := byID[e.ID]; dup {
			return nil, fmt.Errorf("manifest entry %q: duplicate id", e.ID)
		}
		byID[e.ID] = e
	}

	return &Store{entries: entries, byID: byID}, nil
}

// Len returns the number of manifest entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Query returns item identifiers in manifest order. With accessCheck set,
// only anonymously-visible (public) items are returned.
func (s *Store) Query(ctx context.Context, accessCheck bool) ([]string, error) {
	ids := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		if accessCheck && !e.Public {
			continue
		}
		ids = append(ids, e.ID)
	}
	return ids, nil
}

// Resolve loads one item by identifier.
func (s *Store) Resolve(ctx context.Context, id string) (warmer.Item, error) {
	e, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, warmer.ErrNotFound)
	}
	return item{e}, nil
}

// ListVariants derives the distinct viewer variants occurring in the
// manifest: the anonymous variant when any public item exists, plus one
// variant per distinct role set on non-public entries. Implements
// variant.Source.
func (s *Store) ListVariants(ctx context.Context) ([]variant.Variant, error) {
	seen := make(map[string]variant.Variant)
	for _, e := range s.entries {
		var v variant.Variant
		if e.Public {
			v = variant.New(nil)
		} else {
			v = variant.New(e.Roles)
		}
		seen[v.Hash] = v
	}

	out := make([]variant.Variant, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out, nil
}

// item adapts an Entry to warmer.Item.
type item struct {
	e Entry
}

func (it item) ID() string {
	return it.e.ID
}

func (it item) CanonicalURL() string {
	return it.e.URL
}

// ViewableBy: public items are visible to everyone including the
// anonymous (nil) viewer; non-public items require the account to hold
// at least one of the entry's roles.
func (it item) ViewableBy(account warmer.Account) bool {
	if it.e.Public {
		return true
	}
	if account == nil {
		return false
	}
	for _, have := range account.Roles() {
		for _, want := range it.e.Roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}
