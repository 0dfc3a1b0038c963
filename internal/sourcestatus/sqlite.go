package sourcestatus

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultSQLiteTable = "source_status"
)

type SQLiteStore struct {
	db         *sql.DB
	table      string
	tableIdent string
}

func NewSQLiteStore(dsn string, table string) (*SQLiteStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}
	if table == "" {
		table = defaultSQLiteTable
	}
	tableIdent, err := quoteSQLiteIdentifier(table)
	if err != nil {
		return nil, err
	}
	if err := ensureSQLiteDir(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Sources report concurrently; a single connection serializes the writes.
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{
		db:         db,
		table:      table,
		tableIdent: tableIdent,
	}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Record(ctx context.Context, outcome Outcome) error {
	if outcome.Source == "" {
		return fmt.Errorf("outcome source is required")
	}
	runAt := outcome.RunAt
	if runAt.IsZero() {
		runAt = time.Now()
	}
	var lastSuccess sql.NullInt64
	if outcome.State == StateOK {
		lastSuccess = sql.NullInt64{Int64: runAt.UnixMilli(), Valid: true}
	}
	_, err := s.db.ExecContext(
		ctx,
		fmt.Sprintf(`INSERT INTO %s (source, url, state, status_code, items, error, duration_ms, run_at, last_success_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			url = excluded.url,
			state = excluded.state,
			status_code = excluded.status_code,
			items = excluded.items,
			error = excluded.error,
			duration_ms = excluded.duration_ms,
			run_at = excluded.run_at,
			last_success_at = COALESCE(excluded.last_success_at, last_success_at)`, s.tableIdent),
		outcome.Source,
		outcome.URL,
		string(outcome.State),
		outcome.StatusCode,
		outcome.Items,
		outcome.Error,
		outcome.Duration.Milliseconds(),
		runAt.UnixMilli(),
		lastSuccess,
	)
	if err != nil {
		return fmt.Errorf("record source status: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Status, error) {
	rows, err := s.db.QueryContext(
		ctx,
		fmt.Sprintf("SELECT source, url, state, status_code, items, error, duration_ms, run_at, last_success_at FROM %s ORDER BY source", s.tableIdent),
	)
	if err != nil {
		return nil, fmt.Errorf("list source status: %w", err)
	}
	defer rows.Close()

	statuses := []Status{}
	for rows.Next() {
		var (
			status      Status
			state       string
			durationMS  int64
			runAtMS     int64
			lastSuccess sql.NullInt64
		)
		if err := rows.Scan(
			&status.Source,
			&status.URL,
			&state,
			&status.StatusCode,
			&status.Items,
			&status.Error,
			&durationMS,
			&runAtMS,
			&lastSuccess,
		); err != nil {
			return nil, fmt.Errorf("scan source status: %w", err)
		}
		status.State = State(state)
		status.Duration = time.Duration(durationMS) * time.Millisecond
		status.RunAt = time.UnixMilli(runAtMS).UTC()
		if lastSuccess.Valid {
			t := time.UnixMilli(lastSuccess.Int64).UTC()
			status.LastSuccessAt = &t
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	if s.table == "" {
		return fmt.Errorf("sqlite table name is required")
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		source TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		state TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		items INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		run_at INTEGER NOT NULL,
		last_success_at INTEGER
	)`, s.tableIdent)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create sqlite table: %w", err)
	}
	return nil
}

func ensureSQLiteDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") {
		dsn = strings.TrimPrefix(dsn, "file:")
		if idx := strings.IndexRune(dsn, '?'); idx >= 0 {
			dsn = dsn[:idx]
		}
	}
	if dsn == "" || dsn == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

var sqliteIdentifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteSQLiteIdentifier(identifier string) (string, error) {
	if identifier == "" {
		return "", fmt.Errorf("sqlite table name is required")
	}
	if !sqliteIdentifierPattern.MatchString(identifier) {
		return "", fmt.Errorf("sqlite table name %q must match %s", identifier, sqliteIdentifierPattern.String())
	}
	return `"` + identifier + `"`, nil
}
