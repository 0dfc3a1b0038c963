// Package feedxml renders an aggregate snapshot as an RSS 2.0 document.
package feedxml

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/feeds"

	"github.com/bakkerme/herald/internal/core"
	"github.com/bakkerme/herald/internal/feedstore"
)

const (
	DefaultTitle       = "Backgammon News"
	DefaultDescription = "Latest updates from the backgammon world"
)

// Generator holds the channel metadata of the syndicated feed.
type Generator struct {
	Title       string
	Description string
	Link        string
}

func NewGenerator(title, description, link string) *Generator {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	if strings.TrimSpace(description) == "" {
		description = DefaultDescription
	}
	return &Generator{
		Title:       title,
		Description: description,
		Link:        link,
	}
}

// Build converts snap into a feed, keeping the snapshot order.
func (g *Generator) Build(snap *feedstore.Snapshot) *feeds.Feed {
	updated := snap.GeneratedAt()
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	feed := &feeds.Feed{
		Title:       g.Title,
		Link:        &feeds.Link{Href: g.Link},
		Description: g.Description,
		Created:     updated,
		Updated:     updated,
	}

	for _, article := range snap.Articles() {
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       article.Title,
			Link:        &feeds.Link{Href: article.Link},
			Description: article.ContentSnippet,
			Author:      &feeds.Author{Name: article.Author},
			Created:     article.PublishedAt,
			Id:          itemID(article),
		})
	}
	return feed
}

// RSS renders snap as an RSS 2.0 XML document.
func (g *Generator) RSS(snap *feedstore.Snapshot) (string, error) {
	out, err := g.Build(snap).ToRss()
	if err != nil {
		return "", fmt.Errorf("render rss: %w", err)
	}
	return out, nil
}

// itemID is the article link, or a stable name-based UUID when the article has no link.
func itemID(article core.Article) string {
	if article.Link != "" && article.Link != core.DefaultLink {
		return article.Link
	}
	name := article.Source + "\n" + article.Title + "\n" + article.PublishedAt.UTC().Format(time.RFC3339)
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
