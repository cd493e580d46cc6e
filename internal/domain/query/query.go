// Package query turns a user profile into the text that gets embedded as the
// search query. The weighting between profile attributes is implicit in
// concatenation order, so the policy is a swappable interface rather than a
// fixed function.
package query

import (
	"strings"

	"github.com/inshort-cloud/billfeed/internal/domain"
)

// Policy builds a query string from a profile.
type Policy interface {
	Build(profile *domain.Profile) string
}

// Concat is the default policy: interests first (primary signal), then
// occupation and location (secondary signal), single-space joined.
// Empty components are skipped.
type Concat struct{}

// Build implements Policy.
func (Concat) Build(profile *domain.Profile) string {
	parts := make([]string, 0, len(profile.Interests)+2)
	for _, interest := range profile.Interests {
		if interest != "" {
			parts = append(parts, interest)
		}
	}
	if profile.Occupation != "" {
		parts = append(parts, profile.Occupation)
	}
	if profile.Location != "" {
		parts = append(parts, profile.Location)
	}
	return strings.Join(parts, " ")
}
