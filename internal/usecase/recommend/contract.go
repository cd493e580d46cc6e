package recommend

import (
	"context"

	"github.com/inshort-cloud/billfeed/internal/domain"
)

// Searcher runs nearest-neighbor queries against the bill index.
type Searcher interface {
	SearchKNN(ctx context.Context, vector []float32, topK int) ([]domain.Hit, error)
}

// SummaryWriter persists generated summaries back to the index.
type SummaryWriter interface {
	SetSummary(ctx context.Context, id, summary string) error
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
