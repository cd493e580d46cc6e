package groq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/inshort-cloud/billfeed/internal/domain"
	"github.com/inshort-cloud/billfeed/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterProviderMetrics()
	os.Exit(m.Run())
}

func testBill() *domain.Bill {
	return &domain.Bill{
		ID:           "hr-1234-119",
		Title:        "Medicare Expansion Act",
		Sponsor:      "Rep. Smith",
		PolicyArea:   "Health",
		LatestAction: "Referred to committee.",
		Excerpt:      "A bill to expand Medicare coverage for occupational therapy.",
	}
}

func testProfile() *domain.Profile {
	return &domain.Profile{
		Name:       "Robert",
		Age:        65,
		Location:   "Florida",
		Occupation: "retired teacher",
		Interests:  []string{"healthcare", "education"},
	}
}

func completionServer(t *testing.T, content string, capture *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		if capture != nil {
			var req struct {
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			for _, m := range req.Messages {
				if m.Role == "user" {
					*capture = m.Content
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
}

func TestSummarizer_Summarize(t *testing.T) {
	var prompt string
	server := completionServer(t, "  This bill expands Medicare coverage.  ", &prompt)
	defer server.Close()

	s := NewSummarizer(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	summary, err := s.Summarize(context.Background(), testBill(), testProfile())
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary != "This bill expands Medicare coverage." {
		t.Errorf("summary = %q, expected trimmed content", summary)
	}

	for _, part := range []string{
		"65-year-old retired teacher from Florida",
		"healthcare, education",
		"Title: Medicare Expansion Act",
		"Sponsor: Rep. Smith",
		"NEWS-STYLE SUMMARY:",
	} {
		if !strings.Contains(prompt, part) {
			t.Errorf("prompt missing %q", part)
		}
	}
}

func TestSummarizer_PromptTruncatesExcerpt(t *testing.T) {
	var prompt string
	server := completionServer(t, "ok", &prompt)
	defer server.Close()

	s := NewSummarizer(&Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		Model:        "test-model",
		ExcerptLimit: 10,
		Logger:       zap.NewNop(),
	})

	bill := testBill()
	bill.Excerpt = strings.Repeat("x", 100)

	if _, err := s.Summarize(context.Background(), bill, testProfile()); err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if !strings.Contains(prompt, "Text: "+strings.Repeat("x", 10)+"\n") {
		t.Error("excerpt was not truncated to the configured limit")
	}
	if strings.Contains(prompt, strings.Repeat("x", 11)) {
		t.Error("excerpt exceeds the configured limit")
	}
}

func TestSummarizer_ErrorWrapsSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error": {"message": "upstream"}}`))
	}))
	defer server.Close()

	s := NewSummarizer(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	_, err := s.Summarize(context.Background(), testBill(), testProfile())
	if !errors.Is(err, domain.ErrGenerationProviderError) {
		t.Errorf("expected ErrGenerationProviderError, got %v", err)
	}
}

func TestSummarizer_EmptyChoicesIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	s := NewSummarizer(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	_, err := s.Summarize(context.Background(), testBill(), testProfile())
	if !errors.Is(err, domain.ErrGenerationProviderError) {
		t.Errorf("expected ErrGenerationProviderError, got %v", err)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"hello", 0, "hello"},
		{"héllo", 2, "hé"}, // rune boundary, not byte
	}
	for _, tt := range tests {
		if got := TruncateRunes(tt.in, tt.limit); got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
