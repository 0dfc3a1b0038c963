package impl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bakkerme/herald/internal/sources/rss"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultUserAgent    = "Mozilla/5.0 (compatible; BackgammonNews/1.0; +https://github.com/bakkerme/herald)"
	DefaultAccept       = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"
	DefaultMaxBodyBytes = 10 << 20
)

// Options configures a Fetcher. Zero values fall back to the defaults above.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	Accept       string
	MaxBodyBytes int64
}

// Fetcher performs a single bounded GET per call. It never retries.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	userAgent    string
	accept       string
	maxBodyBytes int64
}

func NewFetcher(options Options) *Fetcher {
	f := &Fetcher{
		// The deadline is applied per request through the context so that it also covers the body read.
		client:       &http.Client{},
		timeout:      options.Timeout,
		userAgent:    options.UserAgent,
		accept:       options.Accept,
		maxBodyBytes: options.MaxBodyBytes,
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	if f.accept == "" {
		f.accept = DefaultAccept
	}
	if f.maxBodyBytes <= 0 {
		f.maxBodyBytes = DefaultMaxBodyBytes
	}
	return f
}

// Fetch returns the complete response body of feedURL. Failures are *rss.FetchError;
// a request that outlives the timeout wraps rss.ErrTimeout.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, &rss.FetchError{URL: feedURL, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", f.accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.wrap(ctx, feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, &rss.FetchError{URL: feedURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, f.wrap(ctx, feedURL, fmt.Errorf("read body: %w", err))
	}
	if int64(len(data)) > f.maxBodyBytes {
		return nil, &rss.FetchError{URL: feedURL, Err: fmt.Errorf("response body exceeds %d bytes", f.maxBodyBytes)}
	}
	return data, nil
}

func (f *Fetcher) wrap(ctx context.Context, feedURL string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &rss.FetchError{URL: feedURL, Err: fmt.Errorf("%w after %s: %v", rss.ErrTimeout, f.timeout, err)}
	}
	return &rss.FetchError{URL: feedURL, Err: err}
}
