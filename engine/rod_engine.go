package engine

import (
	"context"
	"fmt"

	"github.com/use-agent/webextract/models"
)

// RenderFunc renders a page in a headless browser. It is injected from
// app.New to avoid a circular import (engine/ -> scraper/).
type RenderFunc func(ctx context.Context, req *FetchRequest) (*FetchResult, error)

// BrowserEngine is a browser-based engine that delegates to the scraper
// through a RenderFunc. The javascript flag distinguishes tier 3 (scripts
// disabled) from tier 4 (scripts enabled).
type BrowserEngine struct {
	render     RenderFunc
	javascript bool
	name       string
}

// NewBrowserEngine creates a BrowserEngine.
//   - render: callback that drives the browser (injected by app.New).
//   - javascript: when true, page scripts run.
func NewBrowserEngine(render RenderFunc, javascript bool) *BrowserEngine {
	name := "browser"
	if javascript {
		name = "browser-js"
	}
	return &BrowserEngine{
		render:     render,
		javascript: javascript,
		name:       name,
	}
}

func (e *BrowserEngine) Name() string { return e.name }

func (e *BrowserEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.render == nil {
		return nil, models.NewExtractError(
			models.ErrCodeBackendUnavailable,
			fmt.Sprintf("%s: browser not configured", e.name),
			nil,
		)
	}

	// Clone the request so we don't mutate the caller's copy.
	r := *req
	r.JavaScript = e.javascript

	result, err := e.render(ctx, &r)
	if err != nil {
		return nil, err
	}
	if result.StatusCode >= 400 {
		return nil, models.NewStatusError(result.StatusCode)
	}

	result.EngineName = e.name
	return result, nil
}
