// Package workset models the ordered universe of warming work for one run
// and provides resumable cursor-based pagination over it.
package workset

import (
	"fmt"
	"strings"
)

// Key identifies one unit of warming work. For edge (CDN) warming there is
// one Key per item and VariantHash is empty. For render warming there is one
// Key per (item, viewer variant) pair.
type Key struct {
	// ItemID is the stable identifier of the content item.
	ItemID string

	// VariantHash is the stable hash of the viewer variant's role set.
	// Empty for edge warming.
	VariantHash string
}

// String encodes the key as "itemID" or "itemID@variantHash".
// The encoding is what external drivers persist as the cursor value.
func (k Key) String() string {
	if k.VariantHash == "" {
		return k.ItemID
	}
	return k.ItemID + "@" + k.VariantHash
}

// ParseKey decodes a key previously encoded with String. Item
// identifiers are opaque and may themselves contain "@", so decoding
// splits on the last "@" and only when the suffix is a well-formed
// variant hash; anything else is the item identifier in full.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return Key{}, fmt.Errorf("empty work key")
	}
	if i := strings.LastIndex(s, "@"); i >= 0 && isVariantHash(s[i+1:]) {
		if i == 0 {
			return Key{}, fmt.Errorf("work key %q has no item id", s)
		}
		return Key{ItemID: s[:i], VariantHash: s[i+1:]}, nil
	}
	return Key{ItemID: s}, nil
}

// variantHashLen is the width of a role-set hash: 16 bytes, hex encoded.
const variantHashLen = 32

// isVariantHash reports whether s is a well-formed role-set hash
// (fixed-width lowercase hex). Item identifiers of exactly this shape
// cannot occur after an "@" without being read as a hash, which is the
// price of a flat string encoding.
func isVariantHash(s string) bool {
	if len(s) != variantHashLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Set is an immutable ordered snapshot of work keys for a single run.
// Pagination over a Set is deterministic: the same cursor always yields
// the same page, so a driver feeding cursors back never skips or
// duplicates keys within one run.
type Set struct {
	keys  []Key
	index map[Key]int
}

// New builds a Set from keys, preserving their order.
// Duplicate keys keep their first position.
func New(keys []Key) *Set {
	s := &Set{
		keys:  make([]Key, 0, len(keys)),
		index: make(map[Key]int, len(keys)),
	}
	for _, k := range keys {
		if _, dup := s.index[k]; dup {
			continue
		}
		s.index[k] = len(s.keys)
		s.keys = append(s.keys, k)
	}
	return s
}

// Len returns the number of keys in the set.
func (s *Set) Len() int {
	return len(s.keys)
}

// Keys returns a copy of all keys in order.
func (s *Set) Keys() []Key {
	out := make([]Key, len(s.keys))
	copy(out, s.keys)
	return out
}

// Page returns up to pageSize keys strictly after cursor, in set order.
//
// A nil cursor starts at the beginning. A cursor that is not an exact
// member of the set returns an empty page: a stale cursor halts the run
// rather than silently restarting it from zero.
func (s *Set) Page(cursor *Key, pageSize int) []Key {
	if pageSize <= 0 {
		return nil
	}

	start := 0
	if cursor != nil {
		pos, ok := s.index[*cursor]
		if !ok {
			return nil
		}
		start = pos + 1
	}

	if start >= len(s.keys) {
		return nil
	}

	end := start + pageSize
	if end > len(s.keys) {
		end = len(s.keys)
	}

	page := make([]Key, end-start)
	copy(page, s.keys[start:end])
	return page
}
