package ingest

import (
	"context"

	"github.com/inshort-cloud/billfeed/internal/domain"
)

// BillUpserter stores bill records and manages the index lifecycle.
type BillUpserter interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, b *domain.Bill, vector []float32) (bool, error)
}

// Embedder vectorizes bill text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
