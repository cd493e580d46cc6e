// Command billfeed-ingest loads a scraped bill corpus file into the vector
// index. The file is the congress.gov scraper output: a JSON array of records,
// each carrying the bill object plus optional detail endpoints.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/inshort-cloud/billfeed/internal/config"
	dbRedis "github.com/inshort-cloud/billfeed/internal/db/redis"
	"github.com/inshort-cloud/billfeed/internal/domain"
	logpkg "github.com/inshort-cloud/billfeed/internal/logger"
	"github.com/inshort-cloud/billfeed/internal/metrics"
	billrepo "github.com/inshort-cloud/billfeed/internal/repository/bill"
	"github.com/inshort-cloud/billfeed/internal/repository/embcache"
	openaiEmb "github.com/inshort-cloud/billfeed/internal/transport/openai"
	ingestuc "github.com/inshort-cloud/billfeed/internal/usecase/ingest"
)

type corpusRecord struct {
	Bill struct {
		Title          string `json:"title"`
		Type           string `json:"type"`
		Number         string `json:"number"`
		Congress       int    `json:"congress"`
		IntroducedDate string `json:"introducedDate"`
		Sponsors       []struct {
			FullName string `json:"fullName"`
		} `json:"sponsors"`
		PolicyArea struct {
			Name string `json:"name"`
		} `json:"policyArea"`
		LatestAction struct {
			Text string `json:"text"`
		} `json:"latestAction"`
	} `json:"bill"`
	SummariesDetails struct {
		Summaries []struct {
			Text string `json:"text"`
		} `json:"summaries"`
	} `json:"summaries_details"`
	FullText string `json:"full_text"`
}

func (r *corpusRecord) toDomain() domain.Bill {
	b := r.Bill

	billNumber := b.Type + "-" + b.Number
	id := fmt.Sprintf("bill_%d_%s%s", b.Congress, strings.ToLower(b.Type), b.Number)

	sponsor := ""
	if len(b.Sponsors) > 0 {
		sponsor = b.Sponsors[0].FullName
	}

	summary := domain.NoSummaryPlaceholder
	if len(r.SummariesDetails.Summaries) > 0 && r.SummariesDetails.Summaries[0].Text != "" {
		summary = r.SummariesDetails.Summaries[0].Text
	}

	return domain.Bill{
		ID:             id,
		Title:          b.Title,
		BillNumber:     billNumber,
		BillType:       b.Type,
		Sponsor:        sponsor,
		Congress:       b.Congress,
		PolicyArea:     b.PolicyArea.Name,
		LatestAction:   b.LatestAction.Text,
		IntroducedDate: b.IntroducedDate,
		Excerpt:        r.FullText,
		Summary:        summary,
	}
}

func main() {
	var (
		file      = flag.String("file", "inshort_bills.json", "corpus JSON file")
		batchSize = flag.Int("batch", 50, "bills per batch")
		workers   = flag.Int("workers", 4, "concurrent batches")
	)
	flag.Parse()

	_ = godotenv.Load()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	records, err := loadCorpus(*file)
	if err != nil {
		logger.Fatal("Failed to load corpus", zap.String("file", *file), zap.Error(err))
	}
	logger.Info("Corpus loaded", zap.String("file", *file), zap.Int("records", len(records)))

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	metrics.RegisterProviderMetrics()

	baseEmbedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	embedder := embcache.New(baseEmbedder, store, metrics.EmbeddingCacheTotal, logger)

	bills := billrepo.New(store, cfg.Index.Name, cfg.Embedding.Dimensions).
		WithHNSW(billrepo.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
	svc := ingestuc.New(bills, embedder, cfg.Embedding.Dimensions).
		WithMaxBatchSize(*batchSize)

	start := time.Now()
	written, failed := run(ctx, svc, records, *batchSize, *workers, logger)

	logger.Info("Ingestion finished",
		zap.Int("written", written),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	fmt.Printf("done: %d written, %d failed in %s\n", written, failed, time.Since(start).Round(time.Second))

	if failed > 0 {
		os.Exit(1)
	}
}

func loadCorpus(path string) ([]domain.Bill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var raw []corpusRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}

	bills := make([]domain.Bill, 0, len(raw))
	for i := range raw {
		bills = append(bills, raw[i].toDomain())
	}
	return bills, nil
}

// run drives the ingestion service over batches on a bounded worker pool.
func run(
	ctx context.Context,
	svc *ingestuc.Service,
	records []domain.Bill,
	batchSize, workers int,
	logger *zap.Logger,
) (written, failed int) {
	batches := make(chan []domain.Bill)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				n, errs := svc.Upsert(ctx, batch)

				mu.Lock()
				written += n
				failed += len(errs)
				mu.Unlock()

				for _, e := range errs {
					logger.Warn("Bill skipped", zap.String("bill_id", e.ID), zap.Error(e.Err))
				}
			}
		}()
	}

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batches <- records[start:end]
	}
	close(batches)
	wg.Wait()

	return written, failed
}
