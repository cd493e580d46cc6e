// Package recommend matches a user profile against the bill index and
// resolves a personalized summary for every returned bill.
package recommend

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inshort-cloud/billfeed/internal/domain"
	"github.com/inshort-cloud/billfeed/internal/domain/query"
	"github.com/inshort-cloud/billfeed/internal/logger"
	"github.com/inshort-cloud/billfeed/internal/metrics"
)

// Service produces ranked bill recommendations for a profile.
type Service struct {
	searcher   Searcher
	writer     SummaryWriter
	embed      Embedder
	summarizer domain.Summarizer
	policy     query.Policy

	workers        int
	summaryTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy overrides the default query policy.
func WithPolicy(p query.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithWorkers bounds the summary backfill pool.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSummaryTimeout bounds each individual summary generation call.
func WithSummaryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.summaryTimeout = d
		}
	}
}

// New creates a recommendation service.
func New(
	searcher Searcher,
	writer SummaryWriter,
	embed Embedder,
	summarizer domain.Summarizer,
	opts ...Option,
) *Service {
	s := &Service{
		searcher:       searcher,
		writer:         writer,
		embed:          embed,
		summarizer:     summarizer,
		policy:         query.Concat{},
		workers:        4,
		summaryTimeout: 20 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend returns up to topK bills matching the profile, ranked by index
// score, each score >= minScore. An empty result is a valid outcome, not an
// error. Embed or search failures are call-fatal and return a RecommendError;
// summary generation failures never are.
func (s *Service) Recommend(
	ctx context.Context, profile *domain.Profile, topK int, minScore float64,
) ([]domain.Recommendation, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	queryText := s.policy.Build(profile)

	embResult, err := s.embed.Embed(ctx, queryText)
	if err != nil {
		return nil, domain.NewRecommendError(domain.StageEmbed, err)
	}

	hits, err := s.searcher.SearchKNN(ctx, embResult.Embedding, topK)
	if err != nil {
		return nil, domain.NewRecommendError(domain.StageSearch, err)
	}

	// Index order is authoritative. The cutoff is inclusive so a hit scoring
	// exactly minScore survives.
	survivors := hits[:0:0]
	for _, h := range hits {
		if h.Score >= minScore {
			survivors = append(survivors, h)
		}
	}
	if len(survivors) == 0 {
		return []domain.Recommendation{}, nil
	}

	summaries := s.resolveSummaries(ctx, profile, survivors)

	recs := make([]domain.Recommendation, len(survivors))
	for i, h := range survivors {
		recs[i] = toRecommendation(h, summaries[i])
	}
	return recs, nil
}

// resolveSummaries fills one summary slot per hit, in hit order. Stored
// summaries are used verbatim; the rest are generated concurrently on a
// bounded pool. A failed generation yields the fallback text for that slot.
func (s *Service) resolveSummaries(
	ctx context.Context, profile *domain.Profile, hits []domain.Hit,
) []string {
	summaries := make([]string, len(hits))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.workers)

	for i := range hits {
		if hits[i].Bill.HasSummary() {
			summaries[i] = hits[i].Bill.Summary
			metrics.SummaryBackfillTotal.WithLabelValues("cached").Inc()
			continue
		}

		wg.Add(1)
		go func(slot int, hit domain.Hit) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			summaries[slot] = s.generateSummary(ctx, &hit.Bill, profile)
		}(i, hits[i])
	}
	wg.Wait()

	return summaries
}

func (s *Service) generateSummary(
	ctx context.Context, bill *domain.Bill, profile *domain.Profile,
) string {
	log := logger.FromContext(ctx)

	genCtx, cancel := context.WithTimeout(ctx, s.summaryTimeout)
	defer cancel()

	summary, err := s.summarizer.Summarize(genCtx, bill, profile)
	if err != nil {
		metrics.SummaryBackfillTotal.WithLabelValues("fallback").Inc()
		log.Warn("Summary generation failed",
			zap.String("bill_id", bill.ID),
			zap.Error(err))
		return domain.FallbackSummary
	}

	metrics.SummaryBackfillTotal.WithLabelValues("generated").Inc()
	s.writeBack(ctx, bill.ID, summary)
	return summary
}

// writeBack stores a generated summary so the next request finds it cached.
// Failures are logged and swallowed.
func (s *Service) writeBack(ctx context.Context, id, summary string) {
	if s.writer == nil {
		return
	}
	if err := s.writer.SetSummary(ctx, id, summary); err != nil {
		logger.FromContext(ctx).Warn("Summary write-back failed",
			zap.String("bill_id", id),
			zap.Error(err))
	}
}

func toRecommendation(h domain.Hit, summary string) domain.Recommendation {
	return domain.Recommendation{
		ID:             h.ID,
		Score:          h.Score,
		Title:          h.Bill.Title,
		BillNumber:     h.Bill.BillNumber,
		BillType:       h.Bill.BillType,
		Sponsor:        h.Bill.Sponsor,
		Congress:       h.Bill.Congress,
		PolicyArea:     h.Bill.PolicyArea,
		LatestAction:   h.Bill.LatestAction,
		IntroducedDate: h.Bill.IntroducedDate,
		Summary:        summary,
	}
}
