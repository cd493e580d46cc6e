package domain

import "strings"

// NoSummaryPlaceholder is the value the scraper writes when a bill has no
// official summary. It counts as a cache miss for summary backfill.
const NoSummaryPlaceholder = "No summary available."

// FallbackSummary is returned for a bill whose summary generation failed.
const FallbackSummary = "Unable to generate summary at this time."

// Bill is a single legislative bill record as stored in the index.
// Immutable once ingested, except for summary backfill.
type Bill struct {
	ID             string
	Title          string
	BillNumber     string
	BillType       string
	Sponsor        string
	Congress       int
	PolicyArea     string
	LatestAction   string
	IntroducedDate string
	Excerpt        string
	Summary        string
}

// HasSummary reports whether the stored summary is usable as-is.
func (b *Bill) HasSummary() bool {
	return b.Summary != "" && b.Summary != NoSummaryPlaceholder
}

// EmbeddingText assembles the text that represents the bill in vector space.
// Field order is fixed so re-ingesting the same record embeds the same text.
func (b *Bill) EmbeddingText() string {
	parts := make([]string, 0, 6)
	parts = append(parts, "Title: "+b.Title)
	if b.BillNumber != "" {
		parts = append(parts, "Bill Number: "+b.BillNumber)
	}
	if b.Sponsor != "" {
		parts = append(parts, "Sponsored by "+b.Sponsor)
	}
	if b.PolicyArea != "" {
		parts = append(parts, "Policy Area: "+b.PolicyArea)
	}
	if b.LatestAction != "" {
		parts = append(parts, "Latest Action: "+b.LatestAction)
	}
	if b.Excerpt != "" {
		parts = append(parts, b.Excerpt)
	}
	return strings.Join(parts, "\n")
}

// Validate checks the invariants the recommender depends on.
func (b *Bill) Validate() error {
	if b.ID == "" {
		return ErrBillIDRequired
	}
	if b.Title == "" {
		return ErrBillTitleRequired
	}
	return nil
}

// Hit is a single nearest-neighbor match from the vector index,
// in index ranking order.
type Hit struct {
	ID    string
	Score float64
	Bill  Bill
}

// Recommendation is one entry of the final response: a ranked bill with its
// resolved summary.
type Recommendation struct {
	ID             string  `json:"id"`
	Score          float64 `json:"score"`
	Title          string  `json:"title"`
	BillNumber     string  `json:"bill_number,omitempty"`
	BillType       string  `json:"bill_type,omitempty"`
	Sponsor        string  `json:"sponsor,omitempty"`
	Congress       int     `json:"congress,omitempty"`
	PolicyArea     string  `json:"policy_area,omitempty"`
	LatestAction   string  `json:"latest_action,omitempty"`
	IntroducedDate string  `json:"introduced_date,omitempty"`
	Summary        string  `json:"summary"`
}
