package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/webextract/config"
	"github.com/use-agent/webextract/engine"
	"github.com/use-agent/webextract/models"
)

// fakeExtractor succeeds for URLs containing "ok" and fails otherwise.
type fakeExtractor struct {
	mu    sync.Mutex
	calls []string
	tiers []int
}

func (f *fakeExtractor) Extract(_ context.Context, url string, maxTier int) (models.ExtractionResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.tiers = append(f.tiers, maxTier)
	f.mu.Unlock()

	if strings.Contains(url, "ok") {
		return models.NewSuccess(url, "Title", strings.Repeat("body ", 30), models.MethodHTTP, 200, time.Millisecond), nil
	}
	return models.NewFailure(url, "tier 1 (httpx) failed: HTTP 404", 404, time.Millisecond), nil
}

type fakeBrowser struct{ running bool }

func (b fakeBrowser) Running() bool { return b.running }

func newTestRouter(t *testing.T, ex *fakeExtractor, mutate func(*config.Config)) *gin.Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Mode = gin.TestMode
	cfg.Auth.Enabled = false
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 1000
	if mutate != nil {
		mutate(cfg)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRouter(ctx, ex, engine.NewGate(3), fakeBrowser{}, cfg, time.Now())
}

func do(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestExtractEndpoint(t *testing.T) {
	ex := &fakeExtractor{}
	r := newTestRouter(t, ex, nil)

	w := do(r, http.MethodPost, "/api/v1/extract", `{"url":"https://ok.example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	got, err := models.ParseJSON(w.Body.Bytes())
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if !got.Success || *got.FetchMethod != models.MethodHTTP {
		t.Errorf("result = %+v", got)
	}
	if diff := cmp.Diff([]int{4}, ex.tiers); diff != "" {
		t.Errorf("max tier mismatch (-want +got):\n%s", diff)
	}

	// Extraction failures are still 200.
	w = do(r, http.MethodPost, "/api/v1/extract", `{"url":"https://missing.example.com","max_tier":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	got, _ = models.ParseJSON(w.Body.Bytes())
	if got.Success || got.Error == nil {
		t.Errorf("result = %+v, want failure", got)
	}
	if ex.tiers[1] != 2 {
		t.Errorf("max tier = %d, want 2", ex.tiers[1])
	}
}

func TestExtractEndpoint_BadRequests(t *testing.T) {
	ex := &fakeExtractor{}
	r := newTestRouter(t, ex, nil)

	for name, body := range map[string]string{
		"missing url":   `{}`,
		"not a url":     `{"url":"hello"}`,
		"ftp":           `{"url":"ftp://example.com/x"}`,
		"max tier 5":    `{"url":"https://example.com","max_tier":5}`,
		"negative tier": `{"url":"https://example.com","max_tier":-1}`,
		"bad json":      `{"url":`,
	} {
		t.Run(name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/v1/extract", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			var resp models.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error == nil || resp.Error.Code != models.ErrCodeInvalidInput {
				t.Errorf("error = %+v", resp.Error)
			}
		})
	}
	if len(ex.calls) != 0 {
		t.Errorf("extractor called for bad requests: %v", ex.calls)
	}
}

func TestBatchEndpoint(t *testing.T) {
	ex := &fakeExtractor{}
	r := newTestRouter(t, ex, func(c *config.Config) { c.Batch.Concurrency = 2 })

	urls := []string{"https://a.ok.com", "https://b.missing.com", "https://c.ok.com"}
	body, _ := json.Marshal(models.BatchRequest{URLs: urls, MaxTier: 3})
	w := do(r, http.MethodPost, "/api/v1/batch/extract", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}

	var resp models.BatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 || resp.Succeeded != 2 {
		t.Errorf("total/succeeded = %d/%d, want 3/2", resp.Total, resp.Succeeded)
	}
	gotURLs := make([]string, len(resp.Results))
	for i, res := range resp.Results {
		gotURLs[i] = res.URL
	}
	if diff := cmp.Diff(urls, gotURLs); diff != "" {
		t.Errorf("result order mismatch (-want +got):\n%s", diff)
	}
	for _, tier := range ex.tiers {
		if tier != 3 {
			t.Errorf("max tier = %d, want 3", tier)
		}
	}
}

func TestBatchEndpoint_TooMany(t *testing.T) {
	ex := &fakeExtractor{}
	r := newTestRouter(t, ex, func(c *config.Config) { c.Batch.MaxURLs = 2 })

	body := `{"urls":["https://a.com","https://b.com","https://c.com"]}`
	if w := do(r, http.MethodPost, "/api/v1/batch/extract", body); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/batch/extract", `{"urls":[]}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty batch status = %d, want 400", w.Code)
	}
	if len(ex.calls) != 0 {
		t.Errorf("extractor called: %v", ex.calls)
	}
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, &fakeExtractor{}, func(c *config.Config) {
		c.Auth.Enabled = true
		c.Auth.APIKeys = []string{"secret"}
	})

	w := do(r, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" || resp.Browser != "not_started" {
		t.Errorf("health = %+v", resp)
	}
	if resp.GateStats.MaxBrowsers != 3 {
		t.Errorf("MaxBrowsers = %d, want 3", resp.GateStats.MaxBrowsers)
	}
}

func TestAuthProtectsExtract(t *testing.T) {
	r := newTestRouter(t, &fakeExtractor{}, func(c *config.Config) {
		c.Auth.Enabled = true
		c.Auth.APIKeys = []string{"secret"}
	})
	body := `{"url":"https://ok.example.com"}`

	if w := do(r, http.MethodPost, "/api/v1/extract", body); w.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/extract", body, "X-API-Key", "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/extract", body, "Authorization", "Bearer secret"); w.Code != http.StatusOK {
		t.Errorf("bearer key: status = %d, want 200", w.Code)
	}
}
