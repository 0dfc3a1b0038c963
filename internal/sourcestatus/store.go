// Package sourcestatus keeps the latest fetch outcome of every configured source.
//
// The aggregate feed does not distinguish a failed source from a quiet one; this
// store is where that distinction lives.
package sourcestatus

import (
	"context"
	"time"
)

// State classifies how a source fared in a run.
type State string

const (
	StateOK         State = "ok"
	StateFetchError State = "fetch_error"
	StateTimeout    State = "timeout"
	StateParseError State = "parse_error"
	StateCancelled  State = "cancelled"
	// StateError covers failures outside fetch and parse, such as a recovered panic.
	StateError State = "error"
)

// Outcome is what one source produced in one run.
type Outcome struct {
	Source     string        `json:"source"`
	URL        string        `json:"url"`
	State      State         `json:"state"`
	StatusCode int           `json:"status_code,omitempty"`
	Items      int           `json:"items"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	RunAt      time.Time     `json:"run_at"`
}

// Status is the persisted view of a source: its latest outcome and when it last succeeded.
type Status struct {
	Outcome
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
}

// Store records outcomes and lists the latest status of each source.
type Store interface {
	Record(ctx context.Context, outcome Outcome) error
	List(ctx context.Context) ([]Status, error)
	Close() error
}
