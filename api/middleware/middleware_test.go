package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webextract/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(APIKeyContextKey))
	})
	return r
}

func get(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := newEngine(Auth([]string{"k1", "", "k2"}))

	tests := []struct {
		name    string
		headers map[string]string
		want    int
		key     string
	}{
		{"none", nil, http.StatusUnauthorized, ""},
		{"x-api-key", map[string]string{"X-API-Key": "k1"}, http.StatusOK, "k1"},
		{"bearer", map[string]string{"Authorization": "Bearer k2"}, http.StatusOK, "k2"},
		{"basic is ignored", map[string]string{"Authorization": "Basic k2"}, http.StatusUnauthorized, ""},
		{"unknown", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.headers)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && w.Body.String() != tt.key {
				t.Errorf("stored key = %q, want %q", w.Body.String(), tt.key)
			}
		})
	}
}

func TestAuth_NoKeysIsOpen(t *testing.T) {
	r := newEngine(Auth([]string{""}))
	if w := get(r, nil); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newEngine(Auth([]string{"a", "b"}), RateLimit(ctx, config.RateLimitConfig{RequestsPerSecond: 0.5, Burst: 2}))

	a := map[string]string{"X-API-Key": "a"}
	for i := 0; i < 2; i++ {
		if w := get(r, a); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
	w := get(r, a)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}

	// Buckets are per key.
	if w := get(r, map[string]string{"X-API-Key": "b"}); w.Code != http.StatusOK {
		t.Errorf("other key: status = %d, want 200", w.Code)
	}
}

func TestLimiterStore_Evict(t *testing.T) {
	s := newLimiterStore(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	now := time.Now()
	s.get("old", now.Add(-2*time.Hour))
	s.get("new", now)

	if left := s.evict(now.Add(-limiterIdleTTL)); left != 1 {
		t.Errorf("evict left %d entries, want 1", left)
	}
	if _, ok := s.limiters["new"]; !ok {
		t.Error("recent identity was evicted")
	}
}
