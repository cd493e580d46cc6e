package domain

import "strings"

// Profile describes the user a recommendation call is personalized for.
// It is owned by the caller for the duration of one request and never persisted.
type Profile struct {
	Name       string
	Age        int
	Location   string
	Occupation string
	Interests  []string
}

// InterestList renders the interests as a comma-separated string for prompts.
func (p *Profile) InterestList() string {
	return strings.Join(p.Interests, ", ")
}

// Validate checks that the profile carries enough signal to build a query.
func (p *Profile) Validate() error {
	if len(p.Interests) == 0 && p.Occupation == "" && p.Location == "" {
		return ErrEmptyProfile
	}
	return nil
}
