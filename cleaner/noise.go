package cleaner

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/samber/lo"
)

// noiseTags are elements that never hold article text.
var noiseTags = cascadia.MustCompile(strings.Join([]string{
	"script", "style", "nav", "footer", "aside", "header", "noscript",
	"iframe", "form", "svg", "button", "select", "option", "textarea",
	"input", "label", "fieldset", "legend", "dialog", "menu", "menuitem",
	"details", "summary", "template",
}, ", "))

// contentBlocks are the block-level elements whose text forms the body.
var contentBlocks = cascadia.MustCompile(
	"p, h1, h2, h3, h4, h5, h6, li, blockquote, td, th, figcaption, pre, dd",
)

// protectedTags are never dropped on class/id/role signals alone. Their
// attributes tend to describe the whole page ("has-sidebar", "nav-open").
var protectedTags = map[string]struct{}{
	"html": {}, "body": {}, "main": {}, "article": {},
}

var noiseClasses = toSet(
	"ad", "ads", "advert", "advertisement", "banner", "sponsor", "sponsored",
	"promo", "promotion", "sidebar", "widget", "social", "share", "sharing",
	"cookie", "consent", "popup", "modal", "overlay", "newsletter",
	"subscribe", "signup", "sign-up", "cta", "call-to-action",
	"related", "recommended", "trending", "popular", "breadcrumb", "breadcrumbs",
	"pagination", "pager", "toolbar", "tooltip", "dropdown",
	"comment", "comments", "disqus", "nav", "navbar", "navigation", "menu",
	"footer",
)

var noiseIDs = toSet(
	"ad", "ads", "sidebar", "cookie-banner", "newsletter", "comment", "comments",
	"disqus_thread", "social-share", "nav", "navigation", "menu", "footer",
)

var noiseRoles = toSet(
	"navigation", "banner", "complementary", "contentinfo", "form",
	"search", "menu", "menubar",
)

// removeNoise detaches every noise subtree below root.
func removeNoise(root *goquery.Selection) {
	root.FindMatcher(noiseTags).Remove()
	root.Find("[class], [id], [role]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return isNoiseElement(s)
	}).Remove()
}

// isNoiseElement checks class, id and ARIA role against the noise keywords.
func isNoiseElement(s *goquery.Selection) bool {
	if _, ok := protectedTags[goquery.NodeName(s)]; ok {
		return false
	}
	if role, ok := s.Attr("role"); ok {
		if _, hit := noiseRoles[strings.ToLower(strings.TrimSpace(role))]; hit {
			return true
		}
	}
	if class, ok := s.Attr("class"); ok {
		if lo.SomeBy(strings.Fields(class), func(tok string) bool { return matchesKeyword(tok, noiseClasses) }) {
			return true
		}
	}
	if id, ok := s.Attr("id"); ok {
		if matchesKeyword(strings.TrimSpace(id), noiseIDs) {
			return true
		}
	}
	return false
}

// matchesKeyword reports whether token is a keyword or contains one as a
// whole part. Parts are split on "-", "_" and camelCase boundaries, so
// "top-nav-bar" and "mainNav" match "nav" while "shadow" does not match "ad".
func matchesKeyword(token string, keywords map[string]struct{}) bool {
	if token == "" {
		return false
	}
	if _, ok := keywords[strings.ToLower(token)]; ok {
		return true
	}
	return lo.SomeBy(keywordParts(token), func(part string) bool {
		_, ok := keywords[part]
		return ok
	})
}

// keywordParts splits a class or id into lowercase words.
func keywordParts(token string) []string {
	var parts []string
	for _, field := range strings.FieldsFunc(token, func(r rune) bool { return r == '-' || r == '_' }) {
		parts = append(parts, splitCamel(field)...)
	}
	return lo.Map(parts, func(p string, _ int) string { return strings.ToLower(p) })
}

// splitCamel breaks "mainNavBar" into "main", "Nav", "Bar". A run of
// capitals ("HTMLNav") stays one word.
func splitCamel(s string) []string {
	var words []string
	start := 0
	prevLower := false
	for i, r := range s {
		upper := unicode.IsUpper(r)
		if upper && prevLower {
			words = append(words, s[start:i])
			start = i
		}
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return append(words, s[start:])
}

func toSet(items ...string) map[string]struct{} {
	return lo.SliceToMap(items, func(s string) (string, struct{}) {
		return s, struct{}{}
	})
}
