// Command herald aggregates backgammon news feeds and serves them as JSON and RSS.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/bakkerme/herald/internal/config"
	"github.com/bakkerme/herald/internal/observability/otelx"
	"github.com/bakkerme/herald/internal/runner"
	"github.com/bakkerme/herald/internal/trigger"
)

var CLI struct {
	Debug     bool          `help:"Enable debug logging."`
	Sources   string        `help:"Sources YAML file. Empty uses the built-in feeds." default:"${sources}"`
	SiteURL   string        `name:"site-url" help:"Public site URL used as the RSS channel link." default:"${site_url}"`
	StatusDSN string        `name:"status-dsn" help:"SQLite DSN for per-source status. Empty disables it." default:"${status_dsn}"`
	Timeout   time.Duration `help:"Per-source fetch timeout." default:"${timeout}"`

	Serve struct {
		Addr     string `help:"Listen address." default:"${addr}"`
		Out      string `help:"Snapshot file rewritten on every refresh." short:"o" default:"${snapshot_path}"`
		Refresh  bool   `help:"Refresh the snapshot on a schedule." default:"true" negatable:""`
		Schedule string `help:"Cron schedule for snapshot refreshes." default:"${schedule}"`
		Timezone string `help:"Timezone for the refresh schedule." default:"${timezone}"`
	} `cmd:"" help:"Serve /api/news, /rss.xml and /api/sources."`

	Snapshot struct {
		Out string `help:"Output file path." short:"o" default:"${snapshot_path}"`
	} `cmd:"" help:"Aggregate once and write the JSON snapshot."`

	Fetch struct {
		Format string `help:"Output format." enum:"json,rss" default:"json"`
	} `cmd:"" help:"Aggregate once and print the result to stdout."`
}

func main() {
	env := config.LoadEnv()
	kctx := kong.Parse(&CLI,
		kong.Name("herald"),
		kong.Description("Backgammon news aggregator."),
		kong.Configuration(kongyaml.Loader, "herald.yaml", "~/.config/herald/herald.yaml"),
		kong.Vars{
			"sources":       env.SourcesPath,
			"site_url":      env.SiteURL,
			"status_dsn":    env.StatusDSN,
			"timeout":       env.RSS.HTTPTimeout.String(),
			"addr":          env.Addr,
			"snapshot_path": env.SnapshotPath,
			"schedule":      env.RefreshSchedule,
			"timezone":      env.RefreshTimezone,
		},
	)

	level := slog.LevelInfo
	if CLI.Debug || env.Debug {
		level = slog.LevelDebug
	}
	// Logs go to stderr so `fetch` output on stdout stays machine-readable.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, kctx.Command(), env, logger); err != nil {
		logger.Error("herald failed", "command", kctx.Command(), "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, env config.EnvConfig, logger *slog.Logger) error {
	shutdownTracing, err := otelx.Init(ctx, logger, env.OTel)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	a, err := newApp(appOptions{
		SourcesPath: CLI.Sources,
		SiteURL:     CLI.SiteURL,
		StatusDSN:   CLI.StatusDSN,
		Timeout:     CLI.Timeout,
		RSS:         env.RSS,
	}, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	switch command {
	case "serve":
		return serve(ctx, a, logger)
	case "snapshot":
		r, err := runner.New(a.aggregator, CLI.Snapshot.Out, logger)
		if err != nil {
			return err
		}
		_, err = r.RunOnce(ctx)
		return err
	case "fetch":
		return a.writeFetch(ctx, os.Stdout, CLI.Fetch.Format)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func serve(ctx context.Context, a *app, logger *slog.Logger) error {
	if CLI.Serve.Refresh {
		r, err := runner.New(a.aggregator, CLI.Serve.Out, logger)
		if err != nil {
			return err
		}
		refresh := trigger.NewCron("snapshot-refresh", CLI.Serve.Schedule, CLI.Serve.Timezone)
		if err := r.Start(ctx, refresh); err != nil {
			return fmt.Errorf("start snapshot refresh: %w", err)
		}
		logger.Info("snapshot refresh scheduled", "schedule", CLI.Serve.Schedule, "next", refresh.Next(), "path", CLI.Serve.Out)
		go func() {
			if _, err := r.RunOnce(ctx); err != nil {
				logger.Error("initial snapshot failed", "error", err)
			}
		}()
	}

	server := a.server()
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(CLI.Serve.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
