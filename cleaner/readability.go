package cleaner

import (
	"fmt"
	"io"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// Article is the readability view of a page: a title and plain text.
type Article struct {
	Title string
	Text  string
}

// ReadArticle runs the Mozilla Readability algorithm over r and returns
// its title and normalized text. Text may be shorter than MinBodyLength;
// callers apply their own threshold.
func ReadArticle(r io.Reader, sourceURL string) (Article, error) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		return Article{}, fmt.Errorf("readability: parse source url: %w", err)
	}

	article, err := readability.FromReader(r, parsedURL)
	if err != nil {
		return Article{}, fmt.Errorf("readability: extract: %w", err)
	}

	return Article{
		Title: collapseSpace(article.Title),
		Text:  normalizeText(article.TextContent),
	}, nil
}

// ReadArticleHTML is ReadArticle over an in-memory document.
func ReadArticleHTML(rawHTML, sourceURL string) (Article, error) {
	return ReadArticle(strings.NewReader(rawHTML), sourceURL)
}

// normalizeText collapses whitespace inside each line and drops blank lines.
func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if l := collapseSpace(line); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
