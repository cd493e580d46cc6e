package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/inshort-cloud/billfeed/internal/domain"
)

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func validProfile() map[string]any {
	return map[string]any{
		"name":       "Maria",
		"age":        65,
		"location":   "Florida",
		"occupation": "retired teacher",
		"interests":  []string{"healthcare", "education"},
	}
}

func TestRecommendations_OK(t *testing.T) {
	searcher := &mockSearcher{
		searchFn: func(_ context.Context, _ []float32, _ int) ([]domain.Hit, error) {
			return []domain.Hit{
				{ID: "hr-1-119", Score: 0.89, Bill: domain.Bill{
					ID: "hr-1-119", Title: "Medicare Expansion Act", Summary: "Expands Medicare.",
				}},
				{ID: "hr-2-119", Score: 0.81, Bill: domain.Bill{
					ID: "hr-2-119", Title: "Teacher Pension Protection Act",
				}},
			}, nil
		},
	}
	ts := newTestServer(searcher, nil, nil, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/recommendations", validProfile())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[recommendationsResponse](t, resp)
	if body.Count != 2 || len(body.Recommendations) != 2 {
		t.Fatalf("count = %d, items = %d", body.Count, len(body.Recommendations))
	}
	if body.Recommendations[0].ID != "hr-1-119" {
		t.Errorf("first id = %s", body.Recommendations[0].ID)
	}
	if body.Recommendations[0].Summary != "Expands Medicare." {
		t.Errorf("first summary = %q", body.Recommendations[0].Summary)
	}
	if body.Recommendations[1].Summary != "Generated summary for hr-2-119" {
		t.Errorf("second summary = %q", body.Recommendations[1].Summary)
	}
}

func TestRecommendations_EmptyResultIsOK(t *testing.T) {
	ts := newTestServer(nil, nil, nil, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/recommendations?min_score=0.9", validProfile())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[recommendationsResponse](t, resp)
	if body.Count != 0 {
		t.Errorf("count = %d, want 0", body.Count)
	}
	if body.Recommendations == nil {
		t.Error("recommendations must be an empty list, not null")
	}
}

func TestRecommendations_InvalidBody(t *testing.T) {
	ts := newTestServer(nil, nil, nil, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/recommendations", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	body := decode[ErrorResponse](t, resp)
	if body.Code != codeBadRequest {
		t.Errorf("code = %q", body.Code)
	}
}

func TestRecommendations_EmptyProfileRejected(t *testing.T) {
	ts := newTestServer(nil, nil, nil, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/recommendations", map[string]any{"name": "x", "age": 30})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	body := decode[ErrorResponse](t, resp)
	if body.Code != codeValidationFailed {
		t.Errorf("code = %q", body.Code)
	}
}

func TestRecommendations_ParamValidation(t *testing.T) {
	ts := newTestServer(nil, nil, nil, nil)
	defer ts.Close()

	for _, q := range []string{"?top_k=0", "?top_k=999", "?top_k=abc", "?min_score=1.5", "?min_score=-0.1"} {
		resp := postJSON(t, ts.URL+"/recommendations"+q, validProfile())
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestRecommendations_EmbedFailureMapsTo502(t *testing.T) {
	embed := &mockEmbedder{
		embedFn: func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
			return domain.EmbeddingResult{}, domain.ErrEmbeddingProviderError
		},
	}
	ts := newTestServer(nil, embed, nil, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/recommendations", validProfile())
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	body := decode[ErrorResponse](t, resp)
	if body.Code != codeEmbeddingProvider {
		t.Errorf("code = %q", body.Code)
	}
}

func TestRecommendations_RateLimitMapsTo429(t *testing.T) {
	embed := &mockEmbedder{
		embedFn: func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
			return domain.EmbeddingResult{}, domain.ErrRateLimited
		},
	}
	ts := newTestServer(nil, embed, nil, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/recommendations", validProfile())
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRecommendations_SearchFailureMapsTo503(t *testing.T) {
	searcher := &mockSearcher{
		searchFn: func(_ context.Context, _ []float32, _ int) ([]domain.Hit, error) {
			return nil, domain.ErrIndexQueryError
		},
	}
	ts := newTestServer(searcher, nil, nil, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/recommendations", validProfile())
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUpsertBills_OK(t *testing.T) {
	ts := newTestServer(nil, nil, nil, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/bills", []map[string]any{
		{"id": "hr-1-119", "title": "Medicare Expansion Act"},
		{"id": "hr-2-119", "title": "Teacher Pension Protection Act"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[upsertResponse](t, resp)
	if body.Written != 2 {
		t.Errorf("written = %d, want 2", body.Written)
	}
	if body.Errors == nil || len(body.Errors) != 0 {
		t.Errorf("errors = %v, want empty list", body.Errors)
	}
}

func TestUpsertBills_PartialFailure(t *testing.T) {
	ts := newTestServer(nil, nil, nil, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/bills", []map[string]any{
		{"id": "hr-1-119", "title": "Medicare Expansion Act"},
		{"id": "hr-2-119"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[upsertResponse](t, resp)
	if body.Written != 1 {
		t.Errorf("written = %d, want 1", body.Written)
	}
	if len(body.Errors) != 1 || body.Errors[0].ID != "hr-2-119" {
		t.Errorf("errors = %v", body.Errors)
	}
}

func TestUpsertBills_EmptyList(t *testing.T) {
	ts := newTestServer(nil, nil, nil, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/bills", []map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHealth_OK(t *testing.T) {
	ts := newTestServer(nil, nil, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	body := decode[healthResponse](t, resp)
	if body.Status != "ok" {
		t.Errorf("status = %q", body.Status)
	}
	if body.Checks["database"] != "ok" {
		t.Errorf("database = %q", body.Checks["database"])
	}
}

func TestHealth_Degraded(t *testing.T) {
	ts := newTestServer(nil, nil, nil, &mockPinger{err: context.DeadlineExceeded})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	resp.Body.Close()
}
