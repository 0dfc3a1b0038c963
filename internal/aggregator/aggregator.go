// Package aggregator fetches every configured source concurrently and merges the
// results into one chronological snapshot.
//
// A source that fails, hangs or panics contributes no articles; it never fails the run.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bakkerme/herald/internal/core"
	"github.com/bakkerme/herald/internal/feedstore"
	"github.com/bakkerme/herald/internal/sources/rss"
	"github.com/bakkerme/herald/internal/sourcestatus"
)

// DefaultSourceTimeout bounds a single source when Config.SourceTimeout is unset.
const DefaultSourceTimeout = 10 * time.Second

// StatusRecorder receives the outcome of every source after each run.
type StatusRecorder interface {
	Record(ctx context.Context, outcome sourcestatus.Outcome) error
}

type Config struct {
	Sources       []core.Source
	Fetcher       rss.Fetcher
	SourceTimeout time.Duration
	// Status is optional.
	Status StatusRecorder
	Logger *slog.Logger
	// Now defaults to time.Now; it stamps entries without a usable date.
	Now func() time.Time
}

type Aggregator struct {
	sources  []core.Source
	excludes []*excludeRule
	fetcher  rss.Fetcher
	timeout  time.Duration
	status   StatusRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// SourceOutcome is what one source contributed to a run. Err is nil on success.
type SourceOutcome struct {
	Source     core.Source
	Articles   []core.Article
	Excluded   int
	StatusCode int
	Err        error
	Duration   time.Duration
	RunAt      time.Time
}

// State classifies Err for logs and the status store.
func (o SourceOutcome) State() sourcestatus.State {
	if o.Err == nil {
		return sourcestatus.StateOK
	}
	var fetchErr *rss.FetchError
	var parseErr *rss.ParseError
	switch {
	case errors.As(o.Err, &parseErr):
		return sourcestatus.StateParseError
	case errors.As(o.Err, &fetchErr) && fetchErr.Timeout():
		return sourcestatus.StateTimeout
	case errors.Is(o.Err, context.Canceled):
		return sourcestatus.StateCancelled
	case errors.As(o.Err, &fetchErr):
		return sourcestatus.StateFetchError
	default:
		return sourcestatus.StateError
	}
}

func (o SourceOutcome) Status() sourcestatus.Outcome {
	out := sourcestatus.Outcome{
		Source:     o.Source.Name,
		URL:        o.Source.URL,
		State:      o.State(),
		StatusCode: o.StatusCode,
		Items:      len(o.Articles),
		Duration:   o.Duration,
		RunAt:      o.RunAt,
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return out
}

// Result is a completed run: the merged snapshot and one outcome per source, in configuration order.
type Result struct {
	Snapshot *feedstore.Snapshot
	Outcomes []SourceOutcome
}

// Failed returns the number of sources that contributed nothing because of an error.
func (r *Result) Failed() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

func New(cfg Config) (*Aggregator, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	excludes := make([]*excludeRule, len(cfg.Sources))
	for i, source := range cfg.Sources {
		if source.URL == "" || source.Name == "" {
			return nil, fmt.Errorf("source %d: url and name are required", i)
		}
		rule, err := compileExclude(source.Exclude)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source.Name, err)
		}
		excludes[i] = rule
	}
	timeout := cfg.SourceTimeout
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		sources:  append([]core.Source{}, cfg.Sources...),
		excludes: excludes,
		fetcher:  cfg.Fetcher,
		timeout:  timeout,
		status:   cfg.Status,
		logger:   logger,
		now:      now,
	}, nil
}

func (a *Aggregator) Sources() []core.Source {
	return append([]core.Source{}, a.sources...)
}

// Aggregate fetches all configured feeds and returns the merged snapshot.
func (a *Aggregator) Aggregate(ctx context.Context) (*feedstore.Snapshot, error) {
	result, err := a.Run(ctx)
	if err != nil {
		return nil, err
	}
	return result.Snapshot, nil
}

// Run fetches every source concurrently and waits for all of them. The only error
// is ctx ending before the run completed; source failures are reported in Result.Outcomes.
func (a *Aggregator) Run(ctx context.Context) (*Result, error) {
	logger := core.LoggerFromContext(ctx, a.logger)
	ctx, span := otel.Tracer("herald/aggregator").Start(ctx, "aggregator.run")
	defer span.End()
	span.SetAttributes(
		attribute.Int("aggregator.sources", len(a.sources)),
		attribute.String("run.id", core.RunIDFromContext(ctx)),
	)

	start := a.now()
	outcomes := make([]SourceOutcome, len(a.sources))
	var wg sync.WaitGroup
	for i := range a.sources {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = a.collect(ctx, logger, a.sources[i], start)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	var merged []core.Article
	for i := range outcomes {
		kept := make([]core.Article, 0, len(outcomes[i].Articles))
		for _, article := range outcomes[i].Articles {
			drop, err := a.excludes[i].Matches(article)
			if err != nil {
				logger.Warn("exclude rule failed; keeping article",
					"source", a.sources[i].Name,
					"rule", a.excludes[i].expression,
					"link", article.Link,
					"error", err,
				)
			}
			if drop {
				outcomes[i].Excluded++
				continue
			}
			kept = append(kept, article)
		}
		outcomes[i].Articles = kept
		merged = append(merged, kept...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})

	a.recordStatus(ctx, logger, outcomes)

	result := &Result{
		Snapshot: feedstore.New(merged, start),
		Outcomes: outcomes,
	}
	span.SetAttributes(
		attribute.Int("aggregator.articles", len(merged)),
		attribute.Int("aggregator.failed_sources", result.Failed()),
	)
	span.SetStatus(codes.Ok, "")
	logger.Info("aggregation complete",
		"sources", len(a.sources),
		"failed", result.Failed(),
		"articles", len(merged),
		"duration", a.now().Sub(start),
	)
	return result, nil
}

// collect runs fetch, parse and normalize for one source. It never panics.
func (a *Aggregator) collect(ctx context.Context, logger *slog.Logger, source core.Source, fetchedAt time.Time) (outcome SourceOutcome) {
	ctx, span := otel.Tracer("herald/aggregator").Start(ctx, "aggregator.source", trace.WithAttributes(
		attribute.String("source.name", source.Name),
		attribute.String("source.url", source.URL),
	))
	defer span.End()

	started := time.Now()
	outcome = SourceOutcome{Source: source, RunAt: fetchedAt}
	defer func() {
		if r := recover(); r != nil {
			outcome.Articles = nil
			outcome.Err = fmt.Errorf("source %s panicked: %v", source.Name, r)
		}
		outcome.Duration = time.Since(started)
		if outcome.Err != nil {
			span.RecordError(outcome.Err)
			span.SetStatus(codes.Error, outcome.Err.Error())
			logger.Warn("source failed",
				"source", source.Name,
				"url", source.URL,
				"status", string(outcome.State()),
				"status_code", outcome.StatusCode,
				"error", outcome.Err,
			)
			return
		}
		span.SetAttributes(attribute.Int("source.items", len(outcome.Articles)))
		span.SetStatus(codes.Ok, "")
		logger.Debug("source fetched", "source", source.Name, "items", len(outcome.Articles), "duration", outcome.Duration)
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body, err := a.fetcher.Fetch(fetchCtx, source.URL)
	if err != nil {
		outcome.Err = fetchFailure(ctx, source.URL, err)
		var fetchErr *rss.FetchError
		if errors.As(outcome.Err, &fetchErr) {
			outcome.StatusCode = fetchErr.StatusCode
		}
		return outcome
	}

	entries, err := rss.Parse(body)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	articles := make([]core.Article, 0, len(entries))
	for _, entry := range entries {
		articles = append(articles, normalize(entry, source, fetchedAt))
	}
	outcome.Articles = articles
	return outcome
}

// fetchFailure makes sure every fetch error is a *rss.FetchError, and that a
// per-source deadline reads as a timeout rather than a bare context error.
func fetchFailure(parent context.Context, feedURL string, err error) error {
	var fetchErr *rss.FetchError
	if errors.As(err, &fetchErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return &rss.FetchError{URL: feedURL, Err: fmt.Errorf("%w: %w", rss.ErrTimeout, err)}
	}
	return &rss.FetchError{URL: feedURL, Err: err}
}

func (a *Aggregator) recordStatus(ctx context.Context, logger *slog.Logger, outcomes []SourceOutcome) {
	if a.status == nil {
		return
	}
	for _, outcome := range outcomes {
		if err := a.status.Record(ctx, outcome.Status()); err != nil {
			logger.Warn("failed to record source status", "source", outcome.Source.Name, "error", err)
		}
	}
}
