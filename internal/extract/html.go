// Package extract turns raw HTML fragments from feed entries into display data:
// the first image, a plain-text rendering and a reading-time estimate.
//
// Every function here is total. Bad input degrades to empty or default values.
package extract

import (
	stdhtml "html"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// WordsPerMinute is the reading speed used by ReadingTime.
const WordsPerMinute = 200

// hiddenElements are dropped along with their whole subtree.
var hiddenElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Frame:    true,
	atom.Frameset: true,
	atom.Noscript: true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Template: true,
}

// blockElements separate words when their text is flattened.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.Table: true, atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Figure: true, atom.Figcaption: true, atom.Hr: true, atom.Dd: true, atom.Dt: true,
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// FirstImage returns the src of the first <img> in document order.
// The second return value is false when the fragment has no usable image.
func FirstImage(htmlText string) (string, bool) {
	if htmlText == "" {
		return "", false
	}
	// Fast path: avoid parsing if there is clearly no image.
	if !strings.Contains(strings.ToLower(htmlText), "<img") {
		return "", false
	}
	nodes, err := parseFragment(htmlText)
	if err != nil {
		return "", false
	}

	var found string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			src := strings.TrimSpace(attrValue(n, "src"))
			if src == "" {
				// Some feeds use lazy-loading attrs.
				src = strings.TrimSpace(firstNonEmpty(attrValue(n, "data-src"), attrValue(n, "data-original"), attrValue(n, "data-lazy-src")))
			}
			if src != "" {
				found = src
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	for _, n := range nodes {
		if walk(n) {
			break
		}
	}
	return found, found != ""
}

// CleanText returns the visible text of an HTML fragment with whitespace collapsed.
// Scripts, styles and embedded frames are removed. If the fragment cannot be
// parsed the tags are stripped with a regular expression instead.
func CleanText(htmlText string) string {
	if strings.TrimSpace(htmlText) == "" {
		return ""
	}
	// Fast path: plain text still needs entity decoding and whitespace folding.
	if !strings.Contains(htmlText, "<") {
		return collapseSpace(stdhtml.UnescapeString(htmlText))
	}
	nodes, err := parseFragment(htmlText)
	if err != nil {
		return stripTags(htmlText)
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if hiddenElements[n.DataAtom] {
				return
			}
			if blockElements[n.DataAtom] {
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.DataAtom] {
			b.WriteByte(' ')
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return collapseSpace(b.String())
}

// ReadingTime estimates minutes to read text at WordsPerMinute, never less than one.
func ReadingTime(text string) int {
	words := len(strings.Fields(text))
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Snippet truncates text to at most max characters without splitting a rune.
func Snippet(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max]))
}

// stripTags is the best-effort fallback when HTML parsing fails.
func stripTags(s string) string {
	return collapseSpace(stdhtml.UnescapeString(tagPattern.ReplaceAllString(s, " ")))
}

func parseFragment(htmlText string) ([]*html.Node, error) {
	// Parse as fragment so this works on partial HTML from RSS feeds.
	ctx := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	return html.ParseFragment(strings.NewReader(htmlText), ctx)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func attrValue(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
