package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bakkerme/herald/internal/aggregator"
	"github.com/bakkerme/herald/internal/api"
	"github.com/bakkerme/herald/internal/config"
	"github.com/bakkerme/herald/internal/feedxml"
	"github.com/bakkerme/herald/internal/sources/rss/impl"
	"github.com/bakkerme/herald/internal/sourcestatus"
)

type appOptions struct {
	SourcesPath string
	SiteURL     string
	StatusDSN   string
	Timeout     time.Duration
	RSS         config.RSSEnvConfig
}

// app is the wired object graph shared by every command.
type app struct {
	aggregator *aggregator.Aggregator
	feed       *feedxml.Generator
	status     *sourcestatus.SQLiteStore
	logger     *slog.Logger
}

func newApp(opts appOptions, logger *slog.Logger) (*app, error) {
	doc, err := config.LoadSources(opts.SourcesPath)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = opts.RSS.HTTPTimeout
	}
	fetcher := impl.NewFetcher(impl.Options{
		Timeout:      timeout,
		UserAgent:    opts.RSS.UserAgent,
		Accept:       opts.RSS.Accept,
		MaxBodyBytes: opts.RSS.MaxBodyBytes,
	})

	a := &app{logger: logger}
	cfg := aggregator.Config{
		Sources:       doc.Sources,
		Fetcher:       fetcher,
		SourceTimeout: timeout,
		Logger:        logger,
	}
	if opts.StatusDSN != "" {
		store, err := sourcestatus.NewSQLiteStore(opts.StatusDSN, "")
		if err != nil {
			return nil, fmt.Errorf("open source status store: %w", err)
		}
		a.status = store
		cfg.Status = store
	}

	agg, err := aggregator.New(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.aggregator = agg

	link := opts.SiteURL
	if link == "" {
		link = doc.Feed.Link
	}
	a.feed = feedxml.NewGenerator(doc.Feed.Title, doc.Feed.Description, link)

	logger.Debug("sources loaded", "count", len(doc.Sources), "status_store", opts.StatusDSN != "")
	return a, nil
}

// server builds the HTTP API. The status endpoint is only enabled with a store.
func (a *app) server() *api.Server {
	var status api.StatusLister
	if a.status != nil {
		status = a.status
	}
	return api.NewServer(a.aggregator, a.feed, status, a.logger)
}

// writeFetch runs one aggregation and writes it to w as indented JSON or as RSS.
func (a *app) writeFetch(ctx context.Context, w io.Writer, format string) error {
	snap, err := a.aggregator.Aggregate(ctx)
	if err != nil {
		return err
	}
	switch format {
	case "rss":
		out, err := a.feed.RSS(snap)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out+"\n")
		return err
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func (a *app) Close() error {
	if a.status != nil {
		return a.status.Close()
	}
	return nil
}
