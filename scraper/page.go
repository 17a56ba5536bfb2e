package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/webextract/engine"
	"github.com/use-agent/webextract/models"
	"github.com/ysmood/gson"
)

// noScriptBlocked is what a render without scripts never needs to load.
var noScriptBlocked = []string{"Script", "Image", "Stylesheet", "Font", "Media"}

// Render loads req.URL in a pooled tab and returns the rendered HTML.
// It matches engine.RenderFunc. The caller's context bounds the whole
// render.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Browser            - launch lazily, fail as BACKEND_UNAVAILABLE
//  2. Acquire page       - borrow a tab from the pool (or create one)
//  3. DEFER: cleanup     - about:blank + return to pool (leak prevention)
//  4. Script switch      - enable or disable page scripts for this render
//  5. Stealth + headers  - stealth JS only when scripts run
//  6. Hijack mount       - block resource types and ad domains
//  7. Navigate + wait    - load event without scripts, DOM stability with
//  8. Extract            - status, HTML, title and final URL
//
// Steps 4-6 MUST happen before step 7; they only affect navigations that
// start after they are installed.
func (s *Scraper) Render(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	// ── 1. Browser ────────────────────────────────────────────────────
	browser, pool, err := s.ensureBrowser()
	if err != nil {
		return nil, err
	}

	// ── 2. Acquire page from pool ─────────────────────────────────────
	s.activePages.Add(1)
	defer s.activePages.Add(-1)

	page, err := s.acquirePage(ctx, browser, pool)
	if err != nil {
		return nil, err
	}

	// ── 3. CRITICAL DEFER: prevent DOM memory leak + guarantee pool return
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			// A tab that cannot reset is not reused; its slot is.
			slog.Warn("cleanup: failed to navigate to about:blank, dropping page", "error", navErr)
			_ = rod.Try(func() { _ = page.Close() })
			pool.Put(nil)
			return
		}
		pool.Put(page)
	}()

	// ── 4. Script switch ──────────────────────────────────────────────
	// Pooled tabs keep this setting, so it is set on every render.
	if err := (proto.EmulationSetScriptExecutionDisabled{Value: !req.JavaScript}).Call(page); err != nil {
		return nil, models.CategorizeError(err, "failed to toggle script execution")
	}

	// ── 5. Stealth + headers ──────────────────────────────────────────
	if req.JavaScript && s.browserCfg.Stealth {
		remove, evalErr := page.EvalOnNewDocument(stealth.JS)
		if evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		} else {
			defer func() { _ = remove() }()
		}
	}
	if headers := refererHeaders(req.URL); len(headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(page)
	}

	// ── 6. Mount hijack router ────────────────────────────────────────
	blocked, blockAds := noScriptBlocked, false
	if req.JavaScript {
		blocked, blockAds = s.blockedTypes, true
	}
	if router := setupHijack(page, blocked, blockAds); router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 7. Navigate + wait ────────────────────────────────────────────
	p := page.Context(ctx)
	if err := p.Navigate(req.URL); err != nil {
		return nil, models.CategorizeError(err, "navigation to target URL failed")
	}
	if req.JavaScript {
		if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
			slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
		}
	} else if loadErr := p.WaitLoad(); loadErr != nil {
		slog.Debug("load event did not fire, proceeding with current DOM", "error", loadErr)
	}

	// ── 8. Extract ────────────────────────────────────────────────────
	rawHTML, err := p.HTML()
	if err != nil {
		return nil, models.CategorizeError(err, "failed to extract page HTML")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &engine.FetchResult{
		HTML:       rawHTML,
		Title:      evalStringOrEmpty(p, `() => document.title`),
		StatusCode: navigationStatus(p),
		FinalURL:   finalURL,
	}, nil
}

// acquirePage takes a tab from the pool, creating one when the slot is
// empty. Waiting for a slot honors ctx. Every failure puts the slot back,
// and a failed create drops the browser so the next render relaunches it.
func (s *Scraper) acquirePage(ctx context.Context, browser *rod.Browser, pool rod.Pool[rod.Page]) (*rod.Page, error) {
	var page *rod.Page
	select {
	case page = <-pool:
	case <-ctx.Done():
		return nil, models.CategorizeError(ctx.Err(), "waiting for a browser page")
	}
	if page != nil {
		return page, nil
	}

	var err error
	if tryErr := rod.Try(func() {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}); tryErr != nil {
		err = tryErr
	}
	if err != nil {
		pool.Put(nil)
		s.dropBrowser(browser)
		return nil, models.NewExtractError(
			models.ErrCodeBackendUnavailable,
			"failed to acquire page from pool",
			err,
		)
	}
	return page, nil
}

// navigationStatus reads the main document's HTTP status through the
// performance API. Returns 0 when the browser does not report one.
func navigationStatus(p *rod.Page) int {
	res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// refererHeaders makes the visit look like it came from a search result.
func refererHeaders(rawURL string) map[string]string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	return map[string]string{
		"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
	}
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
