package variant

import (
	"testing"
)

func TestHashRoles_OrderIndependent(t *testing.T) {
	a := HashRoles([]string{"editor", "reviewer", "anonymous"})
	b := HashRoles([]string{"anonymous", "editor", "reviewer"})

	if a != b {
		t.Errorf("hash depends on role order: %q != %q", a, b)
	}
}

func TestHashRoles_DuplicatesIgnored(t *testing.T) {
	a := HashRoles([]string{"editor", "editor", "anonymous"})
	b := HashRoles([]string{"anonymous", "editor"})

	if a != b {
		t.Errorf("hash depends on duplicates: %q != %q", a, b)
	}
}

func TestHashRoles_DistinctSetsDiffer(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
	}{
		{"disjoint", []string{"editor"}, []string{"anonymous"}},
		{"subset", []string{"editor"}, []string{"editor", "reviewer"}},
		{"empty vs non-empty", nil, []string{"editor"}},
		// Concatenation ambiguity: {"ab","c"} must not hash like {"a","bc"}.
		{"boundary", []string{"ab", "c"}, []string{"a", "bc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if HashRoles(tt.a) == HashRoles(tt.b) {
				t.Errorf("HashRoles(%v) == HashRoles(%v)", tt.a, tt.b)
			}
		})
	}
}

func TestNew_NormalizesRoles(t *testing.T) {
	v := New([]string{"editor", "", "anonymous", "editor"})

	want := []string{"anonymous", "editor"}
	if len(v.Roles) != len(want) {
		t.Fatalf("Roles = %v, want %v", v.Roles, want)
	}
	for i := range want {
		if v.Roles[i] != want[i] {
			t.Errorf("Roles[%d] = %q, want %q", i, v.Roles[i], want[i])
		}
	}

	if v.Hash != HashRoles(want) {
		t.Errorf("Hash = %q, want %q", v.Hash, HashRoles(want))
	}
}

func TestNew_EmptyRoleSet(t *testing.T) {
	v := New(nil)

	if len(v.Roles) != 0 {
		t.Errorf("Roles = %v, want empty", v.Roles)
	}
	if v.Hash == "" {
		t.Error("empty role set must still produce a stable hash")
	}
	if v.Hash != New([]string{}).Hash {
		t.Error("nil and empty role sets must hash identically")
	}
}
