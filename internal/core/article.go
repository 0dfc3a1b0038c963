package core

import "time"

// Source is one configured remote feed.
type Source struct {
	URL  string `json:"url" yaml:"url"`
	Name string `json:"name" yaml:"name"`
	// Exclude is an optional rule; articles it matches are dropped from the aggregate.
	Exclude string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// Article is the normalized record handed to every downstream consumer.
// All fields are resolved to defaults before an Article leaves the aggregator.
type Article struct {
	Title              string    `json:"title" yaml:"title"`
	Link               string    `json:"link" yaml:"link"`
	ContentSnippet     string    `json:"contentSnippet" yaml:"content_snippet"`
	Source             string    `json:"source" yaml:"source"`
	PublishedAt        time.Time `json:"publishedAt" yaml:"published_at"`
	ImageURL           string    `json:"imageUrl,omitempty" yaml:"image_url,omitempty"`
	Categories         []string  `json:"categories" yaml:"categories"`
	Author             string    `json:"author" yaml:"author"`
	ReadingTimeMinutes int       `json:"readingTimeMinutes" yaml:"reading_time_minutes"`
}

const (
	DefaultTitle   = "Untitled"
	DefaultLink    = "#"
	DefaultAuthor  = "Unknown"
	DefaultSnippet = "No description available"

	MaxSnippetLength = 300
)
