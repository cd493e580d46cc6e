package search

import (
	"context"
	"errors"
	"testing"

	"github.com/inshort-cloud/billfeed/internal/db"
	"github.com/inshort-cloud/billfeed/internal/domain"
	billrepo "github.com/inshort-cloud/billfeed/internal/repository/bill"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func testVector() []float32 {
	return []float32{0.1, 0.2, 0.3, 0.4}
}

func TestSearchKNN_MapsHits(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			if q.IndexName != "billfeed:bills:idx" {
				t.Errorf("index name = %q", q.IndexName)
			}
			if q.K != 3 {
				t.Errorf("k = %d, want 3", q.K)
			}
			return &db.SearchResult{
				Total: 2,
				Entries: []db.SearchEntry{
					{
						Key:   "billfeed:bills:hr-1-119",
						Score: 0.89,
						Fields: map[string]string{
							billrepo.FieldTitle:   "Medicare Expansion Act",
							billrepo.FieldSummary: "Expands Medicare.",
						},
					},
					{
						Key:   "billfeed:bills:hr-2-119",
						Score: 0.81,
						Fields: map[string]string{
							billrepo.FieldTitle: "Teacher Pension Act",
						},
					},
				},
			}, nil
		},
	}
	repo := New(ms, "bills")

	hits, err := repo.SearchKNN(context.Background(), testVector(), 3)
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "hr-1-119" || hits[0].Score != 0.89 {
		t.Errorf("hit[0] = %+v", hits[0])
	}
	if hits[0].Bill.Title != "Medicare Expansion Act" {
		t.Errorf("hit[0] bill title = %q", hits[0].Bill.Title)
	}
	if hits[1].Bill.Summary != "" {
		t.Errorf("hit[1] summary = %q, want empty", hits[1].Bill.Summary)
	}
}

func TestSearchKNN_EmptyIndex(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
			return &db.SearchResult{Total: 0}, nil
		},
	}
	repo := New(ms, "bills")

	hits, err := repo.SearchKNN(context.Background(), testVector(), 5)
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestSearchKNN_StoreErrorWrapsSentinel(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
			return nil, errors.New("connection refused")
		},
	}
	repo := New(ms, "bills")

	_, err := repo.SearchKNN(context.Background(), testVector(), 5)
	if !errors.Is(err, domain.ErrIndexQueryError) {
		t.Errorf("expected ErrIndexQueryError, got %v", err)
	}
}

func TestSearchKNN_RequestsMetadataFields(t *testing.T) {
	var gotFields []string
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			gotFields = q.ReturnFields
			return &db.SearchResult{}, nil
		},
	}
	repo := New(ms, "bills")

	if _, err := repo.SearchKNN(context.Background(), testVector(), 1); err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}

	want := map[string]bool{"__vector_score": true}
	for _, f := range billrepo.MetadataFields {
		want[f] = true
	}
	for _, f := range gotFields {
		if !want[f] {
			t.Errorf("unexpected return field %q", f)
		}
		delete(want, f)
	}
	for f := range want {
		t.Errorf("missing return field %q", f)
	}
}
