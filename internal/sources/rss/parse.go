package rss

import (
	"bytes"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Parse converts a raw RSS, Atom or JSON feed document into entries, in document order.
// Missing optional elements are left empty; a document that cannot be parsed at all
// yields a *ParseError.
func Parse(data []byte) ([]RawEntry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Err: gofeed.ErrFeedTypeNotDetected}
	}
	// gofeed.Parser keeps per-parse state, so each call gets its own.
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entry := RawEntry{
			Title:      strings.TrimSpace(item.Title),
			Link:       itemLink(item),
			Content:    itemContent(item),
			Published:  firstNonEmpty(item.Published, item.Updated),
			Author:     itemAuthor(item),
			Categories: item.Categories,
			ImageURL:   itemImage(item),
		}
		if item.PublishedParsed != nil {
			entry.PublishedAt = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			entry.PublishedAt = item.UpdatedParsed
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// itemContent prefers full content over summaries: content:encoded > content > description.
func itemContent(item *gofeed.Item) string {
	if encoded := extensionValue(item, "content", "encoded"); encoded != "" {
		return encoded
	}
	return firstNonEmpty(item.Content, item.Description)
}

func itemLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	for _, link := range item.Links {
		if link = strings.TrimSpace(link); link != "" {
			return link
		}
	}
	return ""
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
		return strings.TrimSpace(item.Author.Name)
	}
	for _, person := range item.Authors {
		if person != nil && strings.TrimSpace(person.Name) != "" {
			return strings.TrimSpace(person.Name)
		}
	}
	if item.DublinCoreExt != nil {
		for _, creator := range item.DublinCoreExt.Creator {
			if strings.TrimSpace(creator) != "" {
				return strings.TrimSpace(creator)
			}
		}
	}
	return ""
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && strings.TrimSpace(item.Image.URL) != "" {
		return strings.TrimSpace(item.Image.URL)
	}
	for _, enclosure := range item.Enclosures {
		if enclosure == nil {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enclosure.Type), "image/") && strings.TrimSpace(enclosure.URL) != "" {
			return strings.TrimSpace(enclosure.URL)
		}
	}
	return ""
}

func extensionValue(item *gofeed.Item, namespace, name string) string {
	if item.Extensions == nil {
		return ""
	}
	for _, extension := range item.Extensions[namespace][name] {
		if v := strings.TrimSpace(extension.Value); v != "" {
			return extension.Value
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
