// Package ingest writes bill records into the vector index with per-item
// error reporting.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inshort-cloud/billfeed/internal/domain"
	"github.com/inshort-cloud/billfeed/internal/logger"
)

// MaxBatchSize is the maximum number of bills per Upsert call.
const MaxBatchSize = 100

// ItemError reports the failure of a single bill in a batch.
type ItemError struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
	Msg string `json:"error"`
}

func newItemError(id string, err error) ItemError {
	return ItemError{ID: id, Err: err, Msg: err.Error()}
}

// Service embeds and stores bill batches.
type Service struct {
	bills        BillUpserter
	embed        Embedder
	vectorDim    int
	maxBatchSize int
}

// New creates an ingestion service. vectorDim is the pinned index
// dimensionality every embedding must match.
func New(bills BillUpserter, embed Embedder, vectorDim int) *Service {
	return &Service{
		bills:        bills,
		embed:        embed,
		vectorDim:    vectorDim,
		maxBatchSize: MaxBatchSize,
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Upsert validates, embeds, and stores the given bills. Returns the number of
// records written and per-item errors for the rest. A rate-limit or quota
// error from the embedding provider cascades: remaining items are marked
// failed and processing stops.
func (s *Service) Upsert(ctx context.Context, records []domain.Bill) (int, []ItemError) {
	log := logger.FromContext(ctx)

	if len(records) > s.maxBatchSize {
		errs := make([]ItemError, len(records))
		err := fmt.Errorf("batch size %d exceeds %d", len(records), s.maxBatchSize)
		for i := range records {
			errs[i] = newItemError(records[i].ID, err)
		}
		return 0, errs
	}

	if err := s.bills.EnsureIndex(ctx); err != nil {
		errs := make([]ItemError, len(records))
		wrapped := fmt.Errorf("ensure index: %w", err)
		for i := range records {
			errs[i] = newItemError(records[i].ID, wrapped)
		}
		return 0, errs
	}

	written := 0
	var errs []ItemError

	for i := range records {
		b := &records[i]

		if err := b.Validate(); err != nil {
			errs = append(errs, newItemError(b.ID, err))
			continue
		}

		vector, cascade, err := s.vectorize(ctx, b)
		if err != nil {
			errs = append(errs, newItemError(b.ID, err))
			if cascade {
				for j := i + 1; j < len(records); j++ {
					errs = append(errs, newItemError(records[j].ID, err))
				}
				return written, errs
			}
			continue
		}

		created, err := s.bills.Upsert(ctx, b, vector)
		if err != nil {
			errs = append(errs, newItemError(b.ID, fmt.Errorf("upsert: %w", err)))
			continue
		}

		written++
		log.Debug("Bill upserted",
			zap.String("bill_id", b.ID),
			zap.Bool("created", created))
	}

	return written, errs
}

// vectorize embeds the bill text and checks dimensionality against the
// pinned config. cascade=true means an error that should abort the
// remaining items.
func (s *Service) vectorize(
	ctx context.Context, b *domain.Bill,
) ([]float32, bool, error) {
	result, err := s.embed.Embed(ctx, b.EmbeddingText())
	if err != nil {
		cascade := errors.Is(err, domain.ErrRateLimited)
		return nil, cascade, fmt.Errorf("vectorize: %w", err)
	}

	// A dimension mismatch is a configuration error, not bad input data, so
	// it aborts the rest of the batch like a rate limit does.
	if len(result.Embedding) != s.vectorDim {
		return nil, true, fmt.Errorf(
			"%w: got %d, index expects %d",
			domain.ErrVectorDimMismatch, len(result.Embedding), s.vectorDim,
		)
	}
	return result.Embedding, false, nil
}
