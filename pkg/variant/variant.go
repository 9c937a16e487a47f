// Package variant models viewer variants: equivalence classes of role
// combinations that render identical output, identified by a stable hash
// of the role set.
package variant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Variant is one viewer variant. Two variants with the same role set have
// the same hash; the hash is a pure function of the role set.
type Variant struct {
	// Roles is the sorted, de-duplicated set of role names.
	Roles []string

	// Hash is the stable identifier derived from Roles.
	Hash string
}

// Source lists the distinct viewer variants that exist. Implemented by
// the surrounding application, which knows which role combinations occur.
type Source interface {
	ListVariants(ctx context.Context) ([]Variant, error)
}

// New builds a Variant from roles, normalizing the role set and deriving
// its hash. Role order and duplicates do not affect the result.
func New(roles []string) Variant {
	normalized := normalize(roles)
	return Variant{
		Roles: normalized,
		Hash:  HashRoles(normalized),
	}
}

// HashRoles derives the stable hash for a role set. The input is
// normalized first, so callers may pass roles in any order.
func HashRoles(roles []string) string {
	normalized := normalize(roles)

	h := sha256.New()
	for _, role := range normalized {
		h.Write([]byte(role))
		h.Write([]byte{0})
	}

	// 16 bytes is plenty for distinguishing role combinations.
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// normalize returns the sorted role set with duplicates and empty names
// removed.
func normalize(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		if role == "" {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}
