package engine

import (
	"context"

	"github.com/use-agent/webextract/cleaner"
)

// ReadabilityEngine is the tier 2 engine. It downloads the page and runs
// the readability algorithm on it, returning title and text directly.
// The whole job runs on a WorkerPool.
type ReadabilityEngine struct {
	fetcher Engine
	pool    *WorkerPool
}

// NewReadabilityEngine creates a ReadabilityEngine that downloads through
// fetcher and runs on pool.
func NewReadabilityEngine(fetcher Engine, pool *WorkerPool) *ReadabilityEngine {
	return &ReadabilityEngine{fetcher: fetcher, pool: pool}
}

func (e *ReadabilityEngine) Name() string { return "readability" }

func (e *ReadabilityEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	return Submit(ctx, e.pool, func(ctx context.Context) (*FetchResult, error) {
		page, err := e.fetcher.Fetch(ctx, req)
		if err != nil {
			return nil, err
		}

		article, err := cleaner.ReadArticleHTML(page.HTML, page.FinalURL)
		if err != nil {
			return nil, err
		}
		title := article.Title
		if title == "" {
			title = cleaner.ExtractTitle(page.HTML)
		}

		return &FetchResult{
			Title:        title,
			Text:         article.Text,
			PreExtracted: true,
			StatusCode:   page.StatusCode,
			FinalURL:     page.FinalURL,
			EngineName:   e.Name(),
		}, nil
	})
}
