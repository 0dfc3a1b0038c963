package aggregator

import (
	"net/url"
	"strings"
	"time"

	"github.com/bakkerme/herald/internal/core"
	"github.com/bakkerme/herald/internal/extract"
	"github.com/bakkerme/herald/internal/sources/rss"
)

// publishedLayouts are tried, in order, on a raw date string the feed parser could not read.
var publishedLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339Nano,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// normalize resolves every optional field of entry so the returned Article is complete.
func normalize(entry rss.RawEntry, source core.Source, fetchedAt time.Time) core.Article {
	link := strings.TrimSpace(entry.Link)
	text := extract.CleanText(entry.Content)

	snippet := extract.Snippet(text, core.MaxSnippetLength)
	if snippet == "" {
		snippet = core.DefaultSnippet
	}

	image, ok := extract.FirstImage(entry.Content)
	if !ok {
		image = entry.ImageURL
	}

	return core.Article{
		Title:              orDefault(strings.TrimSpace(entry.Title), core.DefaultTitle),
		Link:               orDefault(link, core.DefaultLink),
		ContentSnippet:     snippet,
		Source:             source.Name,
		PublishedAt:        publishedAt(entry, fetchedAt),
		ImageURL:           resolveURL(image, link, source.URL),
		Categories:         cleanCategories(entry.Categories),
		Author:             orDefault(strings.TrimSpace(entry.Author), core.DefaultAuthor),
		ReadingTimeMinutes: extract.ReadingTime(text),
	}
}

func publishedAt(entry rss.RawEntry, fallback time.Time) time.Time {
	if entry.PublishedAt != nil && !entry.PublishedAt.IsZero() {
		return entry.PublishedAt.UTC()
	}
	if t, ok := parsePublished(entry.Published); ok {
		return t.UTC()
	}
	return fallback.UTC()
}

func parsePublished(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// resolveURL makes ref absolute against the first absolute base. It returns "" for an empty ref.
func resolveURL(ref string, bases ...string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() {
		return parsed.String()
	}
	for _, base := range bases {
		b, err := url.Parse(base)
		if err != nil || !b.IsAbs() {
			continue
		}
		return b.ResolveReference(parsed).String()
	}
	return parsed.String()
}

func cleanCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
