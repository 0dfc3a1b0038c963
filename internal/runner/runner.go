// Package runner executes aggregation runs, once or on every trigger event, and
// writes each result to the snapshot file.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bakkerme/herald/internal/aggregator"
	"github.com/bakkerme/herald/internal/core"
	"github.com/bakkerme/herald/internal/runner/snapshot"
	"github.com/bakkerme/herald/internal/trigger"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Aggregator is the part of *aggregator.Aggregator the runner needs.
type Aggregator interface {
	Run(ctx context.Context) (*aggregator.Result, error)
}

// Trigger produces events that each start a run.
type Trigger interface {
	Start(ctx context.Context) (<-chan trigger.Event, error)
}

type Run struct {
	ID          string
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      RunStatus
	Result      *aggregator.Result
	// SnapshotPath is where the result was written, empty when no snapshot was saved.
	SnapshotPath string
}

type Runner struct {
	aggregator   Aggregator
	snapshotPath string
	logger       *slog.Logger
}

func New(agg Aggregator, snapshotPath string, logger *slog.Logger) (*Runner, error) {
	if agg == nil {
		return nil, fmt.Errorf("aggregator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{aggregator: agg, snapshotPath: snapshotPath, logger: logger}, nil
}

// Start runs once for every event of each trigger until ctx is done.
func (r *Runner) Start(ctx context.Context, triggers ...Trigger) error {
	for _, t := range triggers {
		if t == nil {
			continue
		}
		events, err := t.Start(ctx)
		if err != nil {
			return err
		}
		go r.listen(ctx, events)
	}
	return nil
}

func (r *Runner) RunOnce(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    RunStatusRunning,
	}
	logger := r.logger.With("run_id", run.ID)
	ctx = core.WithRunID(ctx, run.ID)
	ctx = core.WithLogger(ctx, logger)

	result, err := r.aggregator.Run(ctx)
	if err != nil {
		run.Status = RunStatusFailed
		return run, err
	}
	run.Result = result

	if r.snapshotPath != "" {
		if err := snapshot.Save(r.snapshotPath, result.Snapshot); err != nil {
			run.Status = RunStatusFailed
			return run, err
		}
		run.SnapshotPath = r.snapshotPath
		logger.Info("snapshot written", "path", r.snapshotPath, "articles", result.Snapshot.Len())
	}

	completedAt := time.Now().UTC()
	run.CompletedAt = &completedAt
	run.Status = RunStatusCompleted
	return run, nil
}

func (r *Runner) listen(ctx context.Context, events <-chan trigger.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			r.logger.Info("trigger event", "trigger", event.Name, "time", event.Timestamp)
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("aggregation run failed", "error", err)
			}
		}
	}
}
