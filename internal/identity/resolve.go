// Package identity derives the on-disk storage key for a verified email.
//
// Institutional addresses of the form <branch><number>@<domain>, e.g.
// cs101@nmamit.in, map to group "CS" and key "CS_101". Every other address
// lands in group "UNKNOWN" keyed by its local part.
package identity

import (
	"regexp"
	"strings"
)

// DefaultDomain is the institution domain used by Resolve.
const DefaultDomain = "nmamit.in"

// UnknownGroup holds every email that does not match the institutional pattern.
const UnknownGroup = "UNKNOWN"

// Resolver maps emails to (group, key) pairs for a single institution domain.
// The zero value is not usable; construct with NewResolver.
type Resolver struct {
	pattern *regexp.Regexp
}

// NewResolver compiles the institutional pattern for domain.
func NewResolver(domain string) *Resolver {
	return &Resolver{
		pattern: regexp.MustCompile(`(?i)^([a-z]{2})(\d{3})@` + regexp.QuoteMeta(domain) + `$`),
	}
}

var defaultResolver = NewResolver(DefaultDomain)

// Resolve maps email using the default institution domain.
func Resolve(email string) (group, key string) {
	return defaultResolver.Resolve(email)
}

// Resolve returns the storage group and key for email. It never fails; an
// email without a local part yields an empty key, which the store rejects.
func (r *Resolver) Resolve(email string) (group, key string) {
	if m := r.pattern.FindStringSubmatch(email); m != nil {
		group = strings.ToUpper(m[1])
		return group, group + "_" + m[2]
	}
	local, _, _ := strings.Cut(email, "@")
	return UnknownGroup, strings.ReplaceAll(local, ".", "_")
}
