package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/use-agent/webextract/cleaner"
	"github.com/use-agent/webextract/models"
)

// Tier bounds.
const (
	MinTier = 1
	MaxTier = 4
)

// ErrInvalidMaxTier is returned by Extract when maxTier is outside
// [MinTier, MaxTier]. No tier runs in that case.
var ErrInvalidMaxTier = errors.New("max tier must be between 1 and 4")

// Tier is one step of the escalation ladder.
type Tier struct {
	Level   int
	Method  models.FetchMethod
	Engine  Engine
	Timeout time.Duration

	// Gated tiers hold a browser gate slot while they run. The timeout
	// starts once the slot is held.
	Gated bool

	// ReadabilityFallback runs the readability extractor over the HTML
	// when the heuristic extractor finds too little text.
	ReadabilityFallback bool

	// DetectJavaScriptWall fails the tier when its text reads like a
	// "please enable JavaScript" placeholder.
	DetectJavaScriptWall bool
}

// Orchestrator walks the tiers from cheapest to most expensive until one
// yields enough content. It holds no per-call state and is safe for
// concurrent use.
type Orchestrator struct {
	tiers []Tier
	gate  *Gate
}

// NewOrchestrator creates an Orchestrator. tiers must contain exactly one
// entry for each level from MinTier to MaxTier, in any order. gate may be
// nil when no tier is gated.
func NewOrchestrator(gate *Gate, tiers ...Tier) (*Orchestrator, error) {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	if len(sorted) != MaxTier {
		return nil, fmt.Errorf("orchestrator: need %d tiers, got %d", MaxTier, len(sorted))
	}
	for i, t := range sorted {
		if t.Level != i+MinTier {
			return nil, fmt.Errorf("orchestrator: missing tier %d", i+MinTier)
		}
		if t.Timeout <= 0 {
			return nil, fmt.Errorf("orchestrator: tier %d has no timeout", t.Level)
		}
		if t.Gated && gate == nil {
			return nil, fmt.Errorf("orchestrator: tier %d is gated but no gate was given", t.Level)
		}
	}
	return &Orchestrator{tiers: sorted, gate: gate}, nil
}

// Gate returns the browser gate, or nil.
func (o *Orchestrator) Gate() *Gate { return o.gate }

// attempt is the outcome of one tier.
type attempt struct {
	title  string
	body   string
	status int
	err    error
}

// Extract fetches rawURL and returns its title and body, escalating
// through at most maxTier tiers. Every fetch or extraction failure ends
// in a failure-shaped result; the returned error is non-nil only for an
// invalid maxTier.
func (o *Orchestrator) Extract(ctx context.Context, rawURL string, maxTier int) (models.ExtractionResult, error) {
	if maxTier < MinTier || maxTier > MaxTier {
		return models.ExtractionResult{}, fmt.Errorf("%w: got %d", ErrInvalidMaxTier, maxTier)
	}

	start := time.Now()
	var (
		last       Tier
		lastErr    error
		lastStatus int
	)

	for level := MinTier; level <= maxTier; {
		t := o.tiers[level-1]
		a := o.run(ctx, t, rawURL)
		if a.status > 0 {
			lastStatus = a.status
		}

		if a.err == nil {
			res := models.NewSuccess(rawURL, a.title, a.body, t.Method, lastStatus, time.Since(start))
			slog.Info("extraction succeeded",
				"url", rawURL,
				"method", t.Method,
				"content_length", res.ContentLength,
				"elapsed_ms", res.ElapsedMs,
			)
			return res, nil
		}

		slog.Debug("tier failed",
			"url", rawURL,
			"tier", t.Level,
			"method", t.Method,
			"error", a.err,
		)
		last, lastErr = t, a.err

		if ctx.Err() != nil {
			break
		}
		level = nextLevel(level, a)
	}

	reason := fmt.Sprintf("tier %d (%s) failed: %s", last.Level, last.Method, describe(lastErr))
	res := models.NewFailure(rawURL, reason, lastStatus, time.Since(start))
	slog.Info("extraction failed",
		"url", rawURL,
		"error", reason,
		"elapsed_ms", res.ElapsedMs,
	)
	return res, nil
}

// nextLevel picks the tier after a failed one. An HTTP error status on
// tier 1 other than 403 or 429 skips the readability tier: the page will
// not get better without a browser.
func nextLevel(level int, a attempt) int {
	if level == 1 && models.CodeOf(a.err) == models.ErrCodeHTTPStatus && skipsReadability(a.status) {
		return 3
	}
	return level + 1
}

func skipsReadability(status int) bool {
	if status < 400 || status > 599 {
		return false
	}
	return status != 403 && status != 429
}

// run executes one tier. It never panics; a panic inside the engine is
// reported as the tier's error.
func (o *Orchestrator) run(ctx context.Context, t Tier, rawURL string) (a attempt) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tier panicked", "url", rawURL, "tier", t.Level, "panic", r)
			a = attempt{err: models.NewExtractError(
				models.ErrCodeInternal,
				fmt.Sprintf("panic: %v", r),
				nil,
			)}
		}
	}()

	if t.Engine == nil {
		return attempt{err: models.NewExtractError(
			models.ErrCodeBackendUnavailable, "engine not configured", nil,
		)}
	}

	if t.Gated {
		if err := o.gate.Acquire(ctx); err != nil {
			return attempt{err: models.CategorizeError(err, "waiting for browser slot")}
		}
		defer o.gate.Release()
	}

	tctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	res, err := t.Engine.Fetch(tctx, &FetchRequest{URL: rawURL, Timeout: t.Timeout})
	if err != nil {
		return attempt{status: models.StatusOf(err), err: err}
	}
	if res == nil {
		return attempt{err: models.NewExtractError(models.ErrCodeInternal, "engine returned no result", nil)}
	}

	a = extractContent(t, res)
	if a.err == nil && t.DetectJavaScriptWall && cleaner.RequiresJavaScript(a.body) {
		a.err = models.NewExtractError(models.ErrCodeJavaScriptRequired, "page requires javascript", nil)
	}
	return a
}

// extractContent turns an engine result into title and body.
func extractContent(t Tier, res *FetchResult) attempt {
	a := attempt{status: res.StatusCode}

	if res.PreExtracted {
		a.title = res.Title
		if utf8.RuneCountInString(res.Text) < cleaner.MinBodyLength {
			a.err = cleaner.ErrInsufficientContent
			return a
		}
		a.body = res.Text
		return a
	}

	c, err := cleaner.Extract(res.HTML)
	a.title = c.Title
	if a.title == "" {
		a.title = res.Title
	}
	if err == nil {
		a.body = c.Text
		return a
	}

	if t.ReadabilityFallback {
		article, rerr := cleaner.ReadArticleHTML(res.HTML, res.FinalURL)
		if rerr == nil && utf8.RuneCountInString(article.Text) >= cleaner.MinBodyLength {
			if a.title == "" {
				a.title = article.Title
			}
			a.body = article.Text
			return a
		}
	}

	a.err = err
	return a
}

// describe renders a tier error for the failure result.
func describe(err error) string {
	if err == nil {
		return "unknown error"
	}
	switch models.CodeOf(err) {
	case models.ErrCodeTimeout:
		return "timeout"
	case models.ErrCodeCanceled:
		return "canceled"
	}
	return err.Error()
}
