// Package search runs nearest-neighbor queries over the bills FT index and
// maps hits back to domain bills.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/inshort-cloud/billfeed/internal/db"
	"github.com/inshort-cloud/billfeed/internal/domain"
	billrepo "github.com/inshort-cloud/billfeed/internal/repository/bill"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/recommend.Searcher.
type Repo struct {
	store     store
	indexName string
}

// New creates a search repository over the named bills index.
func New(s store, indexName string) *Repo {
	return &Repo{store: s, indexName: indexName}
}

// SearchKNN returns the topK nearest bills for the query vector, in index
// ranking order (descending similarity). Scores are cosine similarity in [0,1].
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, topK int) ([]domain.Hit, error) {
	indexName := fmt.Sprintf("%s%s:idx", domain.KeyPrefix, r.indexName)

	q := &db.KNNQuery{
		IndexName:    indexName,
		Vector:       vector,
		K:            topK,
		ReturnFields: append([]string{"__vector_score"}, billrepo.MetadataFields...),
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: search knn %s: %w", domain.ErrIndexQueryError, r.indexName, err)
	}

	return r.parseHits(sr), nil
}

// parseHits converts db.SearchResult into ranked domain hits.
func (r *Repo) parseHits(sr *db.SearchResult) []domain.Hit {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	prefix := fmt.Sprintf("%s%s:", domain.KeyPrefix, r.indexName)
	hits := make([]domain.Hit, 0, len(sr.Entries))

	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, prefix)
		hits = append(hits, domain.Hit{
			ID:    id,
			Score: entry.Score,
			Bill:  billrepo.FieldsToBill(id, entry.Fields),
		})
	}

	return hits
}
