package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/webextract/models"
)

const examplePage = `<!doctype html>
<html><head><title>Example Domain</title></head>
<body><div>
<h1>Example Domain</h1>
<p>This domain is for use in illustrative examples in documents. You may use this
domain in literature without prior coordination or asking for permission.</p>
<p><a href="https://www.iana.org/domains/example">More information...</a></p>
</div></body></html>`

func TestHTTPEngine_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Chrome") {
			t.Errorf("User-Agent = %q, want a browser UA", ua)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, examplePage)
	}))
	defer srv.Close()

	res, err := NewHTTPEngine().Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if !strings.Contains(res.HTML, "<title>Example Domain</title>") {
		t.Errorf("HTML missing title: %q", res.HTML)
	}
	if res.EngineName != "http" {
		t.Errorf("EngineName = %q", res.EngineName)
	}
}

func TestHTTPEngine_Errors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantCode   string
		wantStatus int
	}{
		{
			name:       "not found",
			handler:    func(w http.ResponseWriter, _ *http.Request) { http.NotFound(w, nil) },
			wantCode:   models.ErrCodeHTTPStatus,
			wantStatus: 404,
		},
		{
			name: "forbidden",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			wantCode:   models.ErrCodeHTTPStatus,
			wantStatus: 403,
		},
		{
			name: "json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"ok":true}`)
			},
			wantCode:   models.ErrCodeNonHTML,
			wantStatus: 200,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPEngine().Fetch(context.Background(), &FetchRequest{URL: srv.URL})
			if err == nil {
				t.Fatal("Fetch() error = nil")
			}
			if got := models.CodeOf(err); got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}
			if got := models.StatusOf(err); got != tt.wantStatus {
				t.Errorf("status = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

func TestHTTPEngine_Redirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, examplePage)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewHTTPEngine()
	res, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/start"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if want := srv.URL + "/final"; res.FinalURL != want {
		t.Errorf("FinalURL = %q, want %q", res.FinalURL, want)
	}

	if _, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/loop"}); err == nil {
		t.Error("Fetch() on a redirect loop returned nil error")
	}
}

func TestHTTPEngine_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewHTTPEngine().Fetch(ctx, &FetchRequest{URL: srv.URL})
	if got := models.CodeOf(err); got != models.ErrCodeTimeout {
		t.Errorf("code = %s (%v), want TIMEOUT", got, err)
	}
}

// newHTTPOnlyOrchestrator wires the real HTTP tier under fakes that fail.
func newHTTPOnlyOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	fail := &fakeEngine{name: "fail", fn: failWith(networkErr)}
	orch, err := NewOrchestrator(NewGate(3),
		Tier{Level: 1, Method: models.MethodHTTP, Engine: NewHTTPEngine(), Timeout: 2 * time.Second},
		Tier{Level: 2, Method: models.MethodReadability, Engine: fail, Timeout: time.Second},
		Tier{Level: 3, Method: models.MethodBrowserNoJS, Engine: fail, Timeout: time.Second, Gated: true},
		Tier{Level: 4, Method: models.MethodBrowser, Engine: fail, Timeout: time.Second, Gated: true},
	)
	if err != nil {
		t.Fatal(err)
	}
	return orch
}

func TestExtract_ExampleDomainEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, examplePage)
	}))
	defer srv.Close()

	res, err := newHTTPOnlyOrchestrator(t).Extract(context.Background(), srv.URL, 4)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !res.Success {
		t.Fatalf("Success = false, error = %s", *res.Error)
	}
	if *res.FetchMethod != models.MethodHTTP {
		t.Errorf("FetchMethod = %q, want httpx", *res.FetchMethod)
	}
	if *res.Title != "Example Domain" {
		t.Errorf("Title = %q, want Example Domain", *res.Title)
	}
	if got := len([]rune(*res.Body)); res.ContentLength != got {
		t.Errorf("ContentLength = %d, body has %d characters", res.ContentLength, got)
	}
	if !strings.HasPrefix(*res.Body, "This domain is for use in illustrative examples") {
		t.Errorf("Body = %q", *res.Body)
	}
}

func TestExtract_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	for _, maxTier := range []int{1, 4} {
		res, err := newHTTPOnlyOrchestrator(t).Extract(context.Background(), addr, maxTier)
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if res.Success {
			t.Fatalf("max_tier %d: Success = true", maxTier)
		}
		if res.Body != nil {
			t.Errorf("max_tier %d: Body = %q, want absent", maxTier, *res.Body)
		}
		want := fmt.Sprintf("tier %d (", maxTier)
		if !strings.HasPrefix(*res.Error, want) {
			t.Errorf("max_tier %d: Error = %q, want prefix %q", maxTier, *res.Error, want)
		}
	}
}
