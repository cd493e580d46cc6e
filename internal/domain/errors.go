package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBillNotFound signals a missing bill record.
	ErrBillNotFound = errors.New("bill not found")
	// ErrBillIDRequired signals a bill record without an identifier.
	ErrBillIDRequired = errors.New("bill id is required")
	// ErrBillTitleRequired signals a bill record without a title.
	ErrBillTitleRequired = errors.New("bill title is required")
	// ErrEmptyProfile signals a profile with no usable query signal.
	ErrEmptyProfile = errors.New("profile has no interests, occupation, or location")

	// ErrVectorDimMismatch signals an embedding whose dimensionality does not
	// match the index. Configuration error, fatal for the operation.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a summary generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
	// ErrIndexQueryError signals a vector index query failure.
	ErrIndexQueryError = errors.New("index query error")
)

// Recommend call stages, recorded in RecommendError.
const (
	StageEmbed  = "embed"
	StageSearch = "search"
)

// RecommendError wraps a call-fatal failure of a recommendation request with
// the stage that failed, so callers can decide on retry.
type RecommendError struct {
	Stage string
	Err   error
}

func (e *RecommendError) Error() string {
	return fmt.Sprintf("recommend %s: %s", e.Stage, e.Err.Error())
}

func (e *RecommendError) Unwrap() error { return e.Err }

// NewRecommendError creates a RecommendError for the given stage.
func NewRecommendError(stage string, err error) error {
	return &RecommendError{Stage: stage, Err: err}
}
