// Package bill stores bill records as hashes in the vector store, one hash
// per bill under a fixed key prefix, with the embedding in a blob field
// covered by the FT index.
package bill

import (
	"context"
	"errors"
	"fmt"

	"github.com/inshort-cloud/billfeed/internal/db"
	"github.com/inshort-cloud/billfeed/internal/domain"
)

// store is the consumer interface for bill records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig holds index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements bill record storage and the bills FT index lifecycle.
type Repo struct {
	store     store
	indexName string
	vectorDim int
	hnsw      HNSWConfig
}

// New creates a bill repository. vectorDim is the pinned index dimensionality.
func New(s store, indexName string, vectorDim int) *Repo {
	return &Repo{store: s, indexName: indexName, vectorDim: vectorDim}
}

// WithHNSW configures HNSW build parameters for EnsureIndex.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// EnsureIndex creates the bills FT index if it does not exist yet.
// Idempotent: an already existing index is not an error.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def := &db.IndexDefinition{
		Name:     r.ftIndexName(),
		Prefixes: []string{r.keyPrefix()},
		Fields: []db.IndexField{
			{
				Name:              FieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.ftIndexName(), err)
	}
	return nil
}

// Upsert creates or overwrites a bill record by id. Returns true if created.
// The vector must already match the pinned dimensionality (checked upstream).
func (r *Repo) Upsert(ctx context.Context, b *domain.Bill, vector []float32) (bool, error) {
	key := r.billKey(b.ID)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}

	if err := r.store.HSet(ctx, key, BillToFields(b, vector)); err != nil {
		return false, fmt.Errorf("hset %s: %w", key, err)
	}

	return !exists, nil
}

// Get returns a bill by id.
func (r *Repo) Get(ctx context.Context, id string) (domain.Bill, error) {
	key := r.billKey(id)

	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return domain.Bill{}, domain.ErrBillNotFound
	}
	return FieldsToBill(id, fields), nil
}

// Count returns the number of indexed bills.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.ftIndexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("search count: %w", err)
	}
	return n, nil
}

// SetSummary writes a generated summary back to the bill record.
// Single-field HSET so the rest of the record stays untouched.
func (r *Repo) SetSummary(ctx context.Context, id, summary string) error {
	key := r.billKey(id)
	if err := r.store.HSet(ctx, key, map[string]string{FieldSummary: summary}); err != nil {
		return fmt.Errorf("hset summary %s: %w", key, err)
	}
	return nil
}

func (r *Repo) keyPrefix() string {
	return domain.KeyPrefix + r.indexName + ":"
}

func (r *Repo) billKey(id string) string {
	return r.keyPrefix() + id
}

func (r *Repo) ftIndexName() string {
	return domain.KeyPrefix + r.indexName + ":idx"
}
