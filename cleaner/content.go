package cleaner

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/webextract/models"
	"golang.org/x/net/html"
)

const (
	// MinBlockLength is the shortest block (in characters) kept in the body.
	// Anything shorter is almost always a menu label or a stray fragment.
	MinBlockLength = 15

	// MinBodyLength is the shortest body (in characters) that counts as
	// usable content.
	MinBodyLength = 100

	blockSeparator = "\n\n"
)

// ErrInsufficientContent is returned when the cleaned body is shorter
// than MinBodyLength.
var ErrInsufficientContent = models.NewExtractError(
	models.ErrCodeInsufficientContent,
	"insufficient content",
	nil,
)

// titleSuffix matches a trailing site name set off by a spaced pipe,
// hyphen, en dash or em dash.
var titleSuffix = regexp.MustCompile(`\s+[|\-\x{2013}\x{2014}]\s+[^|\-\x{2013}\x{2014}]+$`)

// Content is the title and body pulled out of one HTML document.
type Content struct {
	Title string
	Text  string
}

// Extract parses rawHTML once and returns its title and cleaned body text.
// When the body is too short the returned error is ErrInsufficientContent
// and Content still carries the title.
func Extract(rawHTML string) (Content, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Content{}, ErrInsufficientContent
	}
	c := Content{Title: titleFromDocument(doc)}
	text, err := textFromDocument(doc)
	if err != nil {
		return c, err
	}
	c.Text = text
	return c, nil
}

// ExtractTitle returns the best title for rawHTML, or "" if none is found.
//
// Priority: og:title meta, then <title> (with any " | Site" suffix
// removed), then the first <h1>. Whitespace is collapsed.
func ExtractTitle(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	return titleFromDocument(doc)
}

// ExtractTextContent returns the article text of rawHTML with noise
// removed, or ErrInsufficientContent.
func ExtractTextContent(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", ErrInsufficientContent
	}
	return textFromDocument(doc)
}

func titleFromDocument(doc *goquery.Document) string {
	og, _ := doc.Find(`meta[property="og:title"]`).First().Attr("content")
	if t := collapseSpace(og); t != "" {
		return t
	}
	if t := collapseSpace(doc.Find("title").First().Text()); t != "" {
		return cleanTitleSuffix(t)
	}
	return collapseSpace(doc.Find("h1").First().Text())
}

// cleanTitleSuffix strips a trailing site name unless nothing would remain.
func cleanTitleSuffix(title string) string {
	cleaned := titleSuffix.ReplaceAllString(title, "")
	if strings.TrimSpace(cleaned) == "" {
		return title
	}
	return cleaned
}

// textFromDocument mutates doc: noise subtrees are removed before the
// remaining content blocks are collected.
func textFromDocument(doc *goquery.Document) (string, error) {
	removeNoise(doc.Selection)

	var blocks []string
	for _, n := range doc.Nodes {
		collectBlocks(n, nil, &blocks)
	}

	body := strings.Join(blocks, blockSeparator)
	if utf8.RuneCountInString(body) < MinBodyLength {
		return "", ErrInsufficientContent
	}
	return body, nil
}

// collectBlocks walks n in document order. buf gathers the text of the
// innermost enclosing content block and is nil outside any block. A
// nested block ends the current run of its parent, so text on either side
// of it and the nested block itself become separate blocks.
func collectBlocks(n *html.Node, buf *strings.Builder, blocks *[]string) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			if buf != nil {
				buf.WriteString(c.Data)
			}
		case c.Type == html.ElementNode && contentBlocks.Match(c):
			flushBlock(buf, blocks)
			var inner strings.Builder
			collectBlocks(c, &inner, blocks)
			flushBlock(&inner, blocks)
		case c.Type == html.ElementNode && c.Data == "br":
			if buf != nil {
				buf.WriteByte(' ')
			}
		default:
			collectBlocks(c, buf, blocks)
		}
	}
}

// flushBlock appends the collapsed text of buf when it clears
// MinBlockLength, then resets buf.
func flushBlock(buf *strings.Builder, blocks *[]string) {
	if buf == nil {
		return
	}
	text := collapseSpace(buf.String())
	buf.Reset()
	if utf8.RuneCountInString(text) >= MinBlockLength {
		*blocks = append(*blocks, text)
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
