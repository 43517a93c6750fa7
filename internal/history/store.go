package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

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

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history database path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas apply per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun records a new running session and returns it with a fresh id.
func (s *Store) BeginRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.Status = StatusRunning
	run.StartedAt = time.Now().UTC()

	err := s.exec(ctx,
		`INSERT INTO runs (
            id, disc_id, disc_title, track_count, transfer_mode, external_mode,
            append_mode, status, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.DiscID,
		nullableString(run.DiscTitle),
		run.TrackCount,
		run.TransferMode,
		run.ExternalMode,
		boolToInt(run.Append),
		run.Status,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordTrack inserts or replaces the outcome of one track.
func (s *Store) RecordTrack(ctx context.Context, rec TrackRecord) error {
	if rec.RunID == "" || rec.Ordinal <= 0 {
		return errors.New("track record requires run id and ordinal")
	}
	rec.UpdatedAt = time.Now().UTC()
	err := s.exec(ctx,
		`INSERT INTO tracks (
            run_id, ordinal, title, seconds, extracted, encoded, transferred,
            failed_stage, error_message, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id, ordinal) DO UPDATE SET
            title = excluded.title,
            seconds = excluded.seconds,
            extracted = excluded.extracted,
            encoded = excluded.encoded,
            transferred = excluded.transferred,
            failed_stage = excluded.failed_stage,
            error_message = excluded.error_message,
            updated_at = excluded.updated_at`,
		rec.RunID,
		rec.Ordinal,
		nullableString(rec.Title),
		rec.Seconds,
		boolToInt(rec.Extracted),
		boolToInt(rec.Encoded),
		boolToInt(rec.Transferred),
		nullableString(rec.FailedStage),
		nullableString(rec.ErrorMessage),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("record track %d: %w", rec.Ordinal, err)
	}
	return nil
}

// FinishRun stores the final status and counters.
func (s *Store) FinishRun(ctx context.Context, runID string, status Status, counts Counts, errMsg string) error {
	err := s.exec(ctx,
		`UPDATE runs
         SET status = ?, extracted = ?, encoded = ?, transferred = ?,
             read_failures = ?, tool_failures = ?, error_message = ?, finished_at = ?
         WHERE id = ?`,
		status,
		counts.Extracted,
		counts.Encoded,
		counts.Transferred,
		counts.ReadFailures,
		counts.ToolFailures,
		nullableString(errMsg),
		formatTime(time.Now().UTC()),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

const runColumns = `id, disc_id, disc_title, track_count, transfer_mode, external_mode,
    append_mode, status, extracted, encoded, transferred, read_failures,
    tool_failures, error_message, started_at, finished_at`

// GetRun fetches a run by id. A unique id prefix is accepted.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Run{}, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY started_at DESC LIMIT 2`,
		id, id+"%")
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		if run.ID == id {
			return run, nil
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate runs: %w", err)
	}
	switch len(runs) {
	case 0:
		return Run{}, ErrRunNotFound
	case 1:
		return runs[0], nil
	default:
		return Run{}, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Tracks returns the track records of a run in ordinal order.
func (s *Store) Tracks(ctx context.Context, runID string) ([]TrackRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, ordinal, title, seconds, extracted, encoded, transferred,
                failed_stage, error_message, updated_at
         FROM tracks WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var out []TrackRecord
	for rows.Next() {
		var (
			rec                             TrackRecord
			title, stage, msg               sql.NullString
			extracted, encoded, transferred int
			updated                         string
		)
		if err := rows.Scan(&rec.RunID, &rec.Ordinal, &title, &rec.Seconds,
			&extracted, &encoded, &transferred, &stage, &msg, &updated); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		rec.Title = title.String
		rec.Extracted = extracted != 0
		rec.Encoded = encoded != 0
		rec.Transferred = transferred != 0
		rec.FailedStage = stage.String
		rec.ErrorMessage = msg.String
		rec.UpdatedAt = parseTime(updated)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune deletes runs that started before cutoff, returning how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff.UTC()))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run             Run
		title, errMsg   sql.NullString
		appendMode      int
		status, started string
		finished        sql.NullString
	)
	if err := row.Scan(&run.ID, &run.DiscID, &title, &run.TrackCount, &run.TransferMode,
		&run.ExternalMode, &appendMode, &status, &run.Extracted, &run.Encoded,
		&run.Transferred, &run.ReadFailures, &run.ToolFailures, &errMsg, &started, &finished); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.DiscTitle = title.String
	run.Append = appendMode != 0
	run.Status = Status(status)
	run.ErrorMessage = errMsg.String
	run.StartedAt = parseTime(started)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	return run, nil
}

func nullableString(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
