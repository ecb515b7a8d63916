package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"videowatch/internal/config"
)

// Store manages the job ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Record is one finished job.
type Record struct {
	ID               int64
	JobID            string
	SourcePath       string
	State            string
	ArtifactPath     string
	PartialErrors    []string
	// ErrorKind is the services.Classify label of the job's worst error.
	ErrorKind        string
	ErrorMessage     string
	Delivered        bool
	DeliveryAttempts int
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Duration reports how long the job ran.
func (r Record) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	timestampLayout  = time.RFC3339Nano
	partialSeparator = "\n"
	defaultListLimit = 20
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the history database at cfg.History.Path.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil || strings.TrimSpace(cfg.History.Path) == "" {
		return nil, errors.New("history path not configured")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.History.Path)
}

// OpenPath opens the ledger at an explicit location. The parent directory
// must exist.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends a finished job and returns its row id.
func (s *Store) Record(ctx context.Context, rec Record) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("history store not open")
	}
	if strings.TrimSpace(rec.SourcePath) == "" {
		return 0, errors.New("history record requires a source path")
	}
	ctx = ensureContext(ctx)

	finished := rec.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	started := rec.StartedAt
	if started.IsZero() {
		started = finished
	}

	kind := strings.TrimSpace(rec.ErrorKind)
	if kind == "" {
		kind = "ok"
	}

	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `INSERT INTO jobs (
			job_id, source_path, state, artifact_path, partial_errors,
			error_kind, error_message, delivered, delivery_attempts, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.JobID,
			rec.SourcePath,
			rec.State,
			rec.ArtifactPath,
			strings.Join(rec.PartialErrors, partialSeparator),
			kind,
			rec.ErrorMessage,
			boolToInt(rec.Delivered),
			rec.DeliveryAttempts,
			started.UTC().Format(timestampLayout),
			finished.UTC().Format(timestampLayout),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert history record: %w", err)
	}
	return id, nil
}

// List returns the most recent records, newest first. A non-positive limit
// uses the default of 20.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("history store not open")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	ctx = ensureContext(ctx)

	rows, err := s.db.QueryContext(ctx, `SELECT
		id, job_id, source_path, state, artifact_path, partial_errors,
		error_kind, error_message, delivered, delivery_attempts, started_at, finished_at
		FROM jobs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec       Record
		partial   string
		delivered int
		started   string
		finished  string
	)
	if err := rows.Scan(
		&rec.ID,
		&rec.JobID,
		&rec.SourcePath,
		&rec.State,
		&rec.ArtifactPath,
		&partial,
		&rec.ErrorKind,
		&rec.ErrorMessage,
		&delivered,
		&rec.DeliveryAttempts,
		&started,
		&finished,
	); err != nil {
		return Record{}, fmt.Errorf("scan history record: %w", err)
	}
	if partial != "" {
		rec.PartialErrors = strings.Split(partial, partialSeparator)
	}
	rec.Delivered = delivered != 0
	rec.StartedAt = parseTimestamp(started)
	rec.FinishedAt = parseTimestamp(finished)
	return rec, nil
}

func parseTimestamp(value string) time.Time {
	parsed, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
