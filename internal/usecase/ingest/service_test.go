package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/inshort-cloud/billfeed/internal/domain"
)

func TestUpsert_AllWritten(t *testing.T) {
	bills := &mockBills{}
	svc := New(bills, &mockEmbedder{}, 4)

	written, errs := svc.Upsert(context.Background(), testBills(3))
	if written != 3 {
		t.Errorf("written = %d, want 3", written)
	}
	if len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	if len(bills.upserted) != 3 {
		t.Errorf("upserted %d records", len(bills.upserted))
	}
}

func TestUpsert_InvalidRecordSkipped(t *testing.T) {
	records := testBills(3)
	records[1].Title = ""
	bills := &mockBills{}
	svc := New(bills, &mockEmbedder{}, 4)

	written, errs := svc.Upsert(context.Background(), records)
	if written != 2 {
		t.Errorf("written = %d, want 2", written)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if !errors.Is(errs[0].Err, domain.ErrBillTitleRequired) {
		t.Errorf("error = %v", errs[0].Err)
	}
}

func TestUpsert_RateLimitCascades(t *testing.T) {
	embed := &mockEmbedder{
		embedFn: func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
			return domain.EmbeddingResult{}, domain.ErrRateLimited
		},
	}
	svc := New(&mockBills{}, embed, 4)

	written, errs := svc.Upsert(context.Background(), testBills(3))
	if written != 0 {
		t.Errorf("written = %d, want 0", written)
	}
	if len(errs) != 3 {
		t.Fatalf("cascade must mark all items, got %d errors", len(errs))
	}
	if embed.calls != 1 {
		t.Errorf("embedder called %d times, want 1", embed.calls)
	}
	for _, e := range errs {
		if !errors.Is(e.Err, domain.ErrRateLimited) {
			t.Errorf("item %s: error = %v", e.ID, e.Err)
		}
	}
}

func TestUpsert_DimensionMismatchCascades(t *testing.T) {
	embed := &mockEmbedder{
		embedFn: func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
			return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
		},
	}
	svc := New(&mockBills{}, embed, 4)

	written, errs := svc.Upsert(context.Background(), testBills(2))
	if written != 0 {
		t.Errorf("written = %d, want 0", written)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
	if !errors.Is(errs[0].Err, domain.ErrVectorDimMismatch) {
		t.Errorf("error = %v", errs[0].Err)
	}
	if embed.calls != 1 {
		t.Errorf("embedder called %d times, want 1", embed.calls)
	}
}

func TestUpsert_ProviderErrorSkipsItem(t *testing.T) {
	call := 0
	embed := &mockEmbedder{
		embedFn: func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
			call++
			if call == 1 {
				return domain.EmbeddingResult{}, domain.ErrEmbeddingProviderError
			}
			return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3, 0.4}}, nil
		},
	}
	svc := New(&mockBills{}, embed, 4)

	written, errs := svc.Upsert(context.Background(), testBills(2))
	if written != 1 {
		t.Errorf("written = %d, want 1", written)
	}
	if len(errs) != 1 {
		t.Errorf("expected 1 error, got %d", len(errs))
	}
}

func TestUpsert_BatchSizeLimit(t *testing.T) {
	svc := New(&mockBills{}, &mockEmbedder{}, 4).WithMaxBatchSize(2)

	written, errs := svc.Upsert(context.Background(), testBills(3))
	if written != 0 {
		t.Errorf("written = %d, want 0", written)
	}
	if len(errs) != 3 {
		t.Errorf("expected 3 errors, got %d", len(errs))
	}
}

func TestUpsert_EnsureIndexFailureFailsBatch(t *testing.T) {
	bills := &mockBills{
		ensureIndexFn: func(_ context.Context) error {
			return errors.New("ft.create failed")
		},
	}
	svc := New(bills, &mockEmbedder{}, 4)

	written, errs := svc.Upsert(context.Background(), testBills(2))
	if written != 0 {
		t.Errorf("written = %d, want 0", written)
	}
	if len(errs) != 2 {
		t.Errorf("expected 2 errors, got %d", len(errs))
	}
	if len(bills.upserted) != 0 {
		t.Errorf("no records should be written, got %d", len(bills.upserted))
	}
}
