package domain

import "context"

// Summarizer produces a short personalized summary of a bill for a profile.
type Summarizer interface {
	Summarize(ctx context.Context, bill *Bill, profile *Profile) (string, error)
}
