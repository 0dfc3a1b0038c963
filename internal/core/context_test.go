package core

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestRunIDRoundTrip(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	if got := RunIDFromContext(ctx); got != "run-1" {
		t.Fatalf("expected run-1, got %q", got)
	}
	if got := RunIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty run id, got %q", got)
	}
	if same := WithRunID(ctx, ""); same != ctx {
		t.Fatalf("expected empty run id to leave context untouched")
	}
}

func TestLoggerFromContextFallbacks(t *testing.T) {
	attached := slog.New(slog.NewTextHandler(io.Discard, nil))
	fallback := slog.New(slog.NewTextHandler(io.Discard, nil))

	if got := LoggerFromContext(WithLogger(context.Background(), attached), fallback); got != attached {
		t.Fatalf("expected attached logger")
	}
	if got := LoggerFromContext(context.Background(), fallback); got != fallback {
		t.Fatalf("expected fallback logger")
	}
	if got := LoggerFromContext(context.Background(), nil); got != slog.Default() {
		t.Fatalf("expected slog.Default()")
	}
}
