package rss

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout marks a fetch that was aborted because its deadline passed.
var ErrTimeout = errors.New("fetch timed out")

// RawEntry is a single feed item as parsed, before normalization.
// Empty strings and a nil PublishedAt mean the field was absent in the feed.
type RawEntry struct {
	Title string
	Link  string
	// Content is the richest body available: content:encoded, then content, then description.
	Content     string
	Published   string
	PublishedAt *time.Time
	Author      string
	Categories  []string
	ImageURL    string
}

// Fetcher retrieves the raw bytes of a feed document.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]byte, error)
}

// FetchError is a network or HTTP failure for one source.
type FetchError struct {
	URL string
	// StatusCode is set when the server answered with a non-2xx status.
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the fetch failed because it ran out of time.
func (e *FetchError) Timeout() bool {
	return errors.Is(e.Err, ErrTimeout)
}

// ParseError is returned when a feed document cannot be parsed at all.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse feed: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
