package identity_test

import (
	"testing"

	"github.com/zynqcloud/face-enroll/internal/identity"
)

func TestResolveInstitutional(t *testing.T) {
	cases := []struct {
		email     string
		wantGroup string
		wantKey   string
	}{
		{"cs101@nmamit.in", "CS", "CS_101"},
		{"CS101@nmamit.in", "CS", "CS_101"},
		{"Ec042@nmamit.in", "EC", "EC_042"},
		{"me999@NMAMIT.IN", "ME", "ME_999"},
	}
	for _, tc := range cases {
		group, key := identity.Resolve(tc.email)
		if group != tc.wantGroup || key != tc.wantKey {
			t.Errorf("Resolve(%q) = (%q, %q), want (%q, %q)",
				tc.email, group, key, tc.wantGroup, tc.wantKey)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	cases := []struct {
		email   string
		wantKey string
	}{
		{"jane.doe@other.org", "jane_doe"},
		{"cs101@other.org", "cs101"},
		{"cs1012@nmamit.in", "cs1012"},  // four digits
		{"c101@nmamit.in", "c101"},      // one letter
		{"xcs101@nmamit.in", "xcs101"},  // anchored at start
		{"cs101@nmamit.in.evil.com", "cs101"},
		{"a.b.c@x.y", "a_b_c"},
		{"no-at-sign", "no-at-sign"},
		{"@nmamit.in", ""},
		{"", ""},
	}
	for _, tc := range cases {
		group, key := identity.Resolve(tc.email)
		if group != identity.UnknownGroup || key != tc.wantKey {
			t.Errorf("Resolve(%q) = (%q, %q), want (%q, %q)",
				tc.email, group, key, identity.UnknownGroup, tc.wantKey)
		}
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	for _, email := range []string{"cs101@nmamit.in", "jane.doe@other.org", "@"} {
		g1, k1 := identity.Resolve(email)
		g2, k2 := identity.Resolve(email)
		if g1 != g2 || k1 != k2 {
			t.Errorf("Resolve(%q) not deterministic: (%q,%q) vs (%q,%q)", email, g1, k1, g2, k2)
		}
	}
}

func TestResolverCustomDomain(t *testing.T) {
	r := identity.NewResolver("uni.example.edu")

	if g, k := r.Resolve("is007@uni.example.edu"); g != "IS" || k != "IS_007" {
		t.Errorf("custom domain match = (%q, %q)", g, k)
	}
	// The dot in the domain is literal, not a regexp wildcard.
	if g, _ := r.Resolve("is007@uniXexample.edu"); g != identity.UnknownGroup {
		t.Errorf("domain dot treated as wildcard: group %q", g)
	}
	if g, _ := r.Resolve("cs101@nmamit.in"); g != identity.UnknownGroup {
		t.Errorf("default domain matched custom resolver: group %q", g)
	}
}
