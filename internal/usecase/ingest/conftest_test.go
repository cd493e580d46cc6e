package ingest

import (
	"context"

	"github.com/inshort-cloud/billfeed/internal/domain"
)

type mockBills struct {
	ensureIndexFn func(ctx context.Context) error
	upsertFn      func(ctx context.Context, b *domain.Bill, vector []float32) (bool, error)
	upserted      []string
}

func (m *mockBills) EnsureIndex(ctx context.Context) error {
	if m.ensureIndexFn != nil {
		return m.ensureIndexFn(ctx)
	}
	return nil
}

func (m *mockBills) Upsert(ctx context.Context, b *domain.Bill, vector []float32) (bool, error) {
	m.upserted = append(m.upserted, b.ID)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, b, vector)
	}
	return true, nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3, 0.4}}, nil
}

func testBills(n int) []domain.Bill {
	bills := make([]domain.Bill, n)
	for i := range bills {
		bills[i] = domain.Bill{
			ID:    string(rune('a' + i)),
			Title: "Bill " + string(rune('A'+i)),
		}
	}
	return bills
}
