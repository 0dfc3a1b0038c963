// Package feedstore holds the ordered result of one aggregation run.
package feedstore

import (
	"encoding/json"
	"time"

	"github.com/bakkerme/herald/internal/core"
)

// Snapshot is an immutable, ordered sequence of articles. It has no mutators;
// every read hands out a copy so consumers cannot disturb each other.
type Snapshot struct {
	articles    []core.Article
	generatedAt time.Time
}

// New takes ownership of articles, which must already be in their final order.
func New(articles []core.Article, generatedAt time.Time) *Snapshot {
	if articles == nil {
		articles = []core.Article{}
	}
	return &Snapshot{articles: articles, generatedAt: generatedAt.UTC()}
}

// Empty returns a snapshot with no articles.
func Empty(generatedAt time.Time) *Snapshot {
	return New(nil, generatedAt)
}

func (s *Snapshot) Articles() []core.Article {
	if s == nil {
		return []core.Article{}
	}
	out := make([]core.Article, len(s.articles))
	for i, article := range s.articles {
		article.Categories = append([]string{}, article.Categories...)
		out[i] = article
	}
	return out
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.articles)
}

func (s *Snapshot) GeneratedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.generatedAt
}

// MarshalJSON encodes the snapshot as a bare JSON array of articles.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Articles())
}
