// Package chi exposes the recommendation service over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/inshort-cloud/billfeed/internal/domain"
	healthuc "github.com/inshort-cloud/billfeed/internal/usecase/health"
	ingestuc "github.com/inshort-cloud/billfeed/internal/usecase/ingest"
	recommenduc "github.com/inshort-cloud/billfeed/internal/usecase/recommend"
)

// Error codes returned in the JSON error body.
const (
	codeBadRequest         = "bad_request"
	codeValidationFailed   = "validation_failed"
	codeBillNotFound       = "bill_not_found"
	codeRateLimited        = "rate_limited"
	codeEmbeddingProvider  = "embedding_provider_error"
	codeGenerationProvider = "generation_provider_error"
	codeIndexQuery         = "index_query_error"
	codeVectorDimMismatch  = "vector_dim_mismatch"
	codeInternalError      = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Limits holds the request parameter bounds and defaults.
type Limits struct {
	DefaultTopK     int
	DefaultMinScore float64
	MaxTopK         int
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server routes HTTP requests to the use case services.
type Server struct {
	recommend     *recommenduc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	limits        Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	recommend *recommenduc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
	limits Limits,
	logger *zap.Logger,
) *Server {
	if limits.DefaultTopK <= 0 {
		limits.DefaultTopK = 5
	}
	if limits.MaxTopK <= 0 {
		limits.MaxTopK = 50
	}
	s := &Server{
		recommend: recommend,
		ingest:    ingest,
		health:    health,
		limits:    limits,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyProfile, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrBillNotFound, http.StatusNotFound, codeBillNotFound),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrGenerationProviderError, http.StatusBadGateway, codeGenerationProvider),
		sentinelHandler(domain.ErrIndexQueryError, http.StatusServiceUnavailable, codeIndexQuery),
	}
	return s
}

// Routes mounts the API onto the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/recommendations", s.Recommendations)
	r.Post("/bills", s.UpsertBills)
	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

type profileRequest struct {
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Location   string   `json:"location"`
	Occupation string   `json:"occupation"`
	Interests  []string `json:"interests"`
}

type recommendationsResponse struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
	Count           int                     `json:"count"`
}

// Recommendations handles POST /recommendations.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	topK, err := s.parseTopK(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	minScore, err := s.parseMinScore(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	profile := domain.Profile{
		Name:       req.Name,
		Age:        req.Age,
		Location:   req.Location,
		Occupation: req.Occupation,
		Interests:  req.Interests,
	}

	recs, err := s.recommend.Recommend(r.Context(), &profile, topK, minScore)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recommendationsResponse{
		Recommendations: recs,
		Count:           len(recs),
	})
}

type billRequest struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	BillNumber     string `json:"bill_number"`
	BillType       string `json:"bill_type"`
	Sponsor        string `json:"sponsor"`
	Congress       int    `json:"congress"`
	PolicyArea     string `json:"policy_area"`
	LatestAction   string `json:"latest_action"`
	IntroducedDate string `json:"introduced_date"`
	Excerpt        string `json:"text"`
	Summary        string `json:"summary"`
}

func (b *billRequest) toDomain() domain.Bill {
	return domain.Bill{
		ID:             b.ID,
		Title:          b.Title,
		BillNumber:     b.BillNumber,
		BillType:       b.BillType,
		Sponsor:        b.Sponsor,
		Congress:       b.Congress,
		PolicyArea:     b.PolicyArea,
		LatestAction:   b.LatestAction,
		IntroducedDate: b.IntroducedDate,
		Excerpt:        b.Excerpt,
		Summary:        b.Summary,
	}
}

type upsertResponse struct {
	Written int                  `json:"written"`
	Errors  []ingestuc.ItemError `json:"errors"`
}

// UpsertBills handles POST /bills.
func (s *Server) UpsertBills(w http.ResponseWriter, r *http.Request) {
	var reqs []billRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "At least one bill is required")
		return
	}

	records := make([]domain.Bill, len(reqs))
	for i := range reqs {
		records[i] = reqs[i].toDomain()
	}

	written, itemErrs := s.ingest.Upsert(r.Context(), records)
	if itemErrs == nil {
		itemErrs = []ingestuc.ItemError{}
	}

	writeJSON(w, http.StatusOK, upsertResponse{Written: written, Errors: itemErrs})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Bills  *int              `json:"bills,omitempty"`
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}

	resp := healthResponse{Status: string(report.Status), Checks: checks}
	if report.Bills >= 0 {
		n := report.Bills
		resp.Bills = &n
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) parseTopK(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("top_k")
	if raw == "" {
		return s.limits.DefaultTopK, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > s.limits.MaxTopK {
		return 0, errors.New("top_k must be between 1 and " + strconv.Itoa(s.limits.MaxTopK))
	}
	return n, nil
}

func (s *Server) parseMinScore(r *http.Request) (float64, error) {
	raw := r.URL.Query().Get("min_score")
	if raw == "" {
		return s.limits.DefaultMinScore, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || f > 1 {
		return 0, errors.New("min_score must be between 0 and 1")
	}
	return f, nil
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyProfile,
		domain.ErrBillNotFound,
		domain.ErrBillIDRequired,
		domain.ErrBillTitleRequired,
		domain.ErrVectorDimMismatch,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationProviderError,
		domain.ErrIndexQueryError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}
