package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bakkerme/herald/internal/aggregator"
	"github.com/bakkerme/herald/internal/core"
	"github.com/bakkerme/herald/internal/feedstore"
	"github.com/bakkerme/herald/internal/runner/snapshot"
	"github.com/bakkerme/herald/internal/trigger"
)

type fakeAggregator struct {
	mu     sync.Mutex
	calls  int
	runIDs []string
	result *aggregator.Result
	err    error
}

func (f *fakeAggregator) Run(ctx context.Context) (*aggregator.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.runIDs = append(f.runIDs, core.RunIDFromContext(ctx))
	return f.result, f.err
}

func (f *fakeAggregator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type chanTrigger struct {
	events chan trigger.Event
}

func (c *chanTrigger) Start(context.Context) (<-chan trigger.Event, error) {
	return c.events, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleResult() *aggregator.Result {
	return &aggregator.Result{Snapshot: feedstore.New([]core.Article{{
		Title:              "Result",
		Link:               "https://usbgf.org/r",
		ContentSnippet:     "s",
		Source:             "USBGF",
		PublishedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Categories:         []string{},
		Author:             "Unknown",
		ReadingTimeMinutes: 1,
	}}, time.Now())}
}

func TestRunOnceWritesSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "news-cache.json")
	agg := &fakeAggregator{result: sampleResult()}
	r, err := New(agg, path, quietLogger())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	run, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if run.Status != RunStatusCompleted || run.CompletedAt == nil {
		t.Fatalf("unexpected run %#v", run)
	}
	if run.SnapshotPath != path {
		t.Fatalf("expected snapshot path %q, got %q", path, run.SnapshotPath)
	}
	if agg.runIDs[0] != run.ID || run.ID == "" {
		t.Fatalf("expected run id %q in context, got %q", run.ID, agg.runIDs[0])
	}

	loaded, err := snapshot.Load(path)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if loaded.Len() != 1 || loaded.Articles()[0].Title != "Result" {
		t.Fatalf("unexpected snapshot contents %#v", loaded.Articles())
	}
}

func TestRunOnceWithoutSnapshotPath(t *testing.T) {
	r, err := New(&fakeAggregator{result: sampleResult()}, "", quietLogger())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	run, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if run.SnapshotPath != "" || run.Result.Snapshot.Len() != 1 {
		t.Fatalf("unexpected run %#v", run)
	}
}

func TestRunOnceReportsAggregatorError(t *testing.T) {
	r, err := New(&fakeAggregator{err: context.Canceled}, "", quietLogger())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	run, err := r.RunOnce(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if run.Status != RunStatusFailed {
		t.Fatalf("expected failed status, got %s", run.Status)
	}
}

func TestStartRunsOnTriggerEvents(t *testing.T) {
	agg := &fakeAggregator{result: sampleResult()}
	r, err := New(agg, "", quietLogger())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	trig := &chanTrigger{events: make(chan trigger.Event)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := r.Start(ctx, trig, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	trig.events <- trigger.Event{Name: "test", Timestamp: time.Now()}
	trig.events <- trigger.Event{Name: "test", Timestamp: time.Now()}
	close(trig.events)

	deadline := time.Now().Add(2 * time.Second)
	for agg.Calls() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 runs, got %d", agg.Calls())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNewRequiresAggregator(t *testing.T) {
	if _, err := New(nil, "", nil); err == nil {
		t.Fatalf("expected error")
	}
}
