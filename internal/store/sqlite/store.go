package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"valvenet/internal/domain"

	_ "modernc.org/sqlite"
)

var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	label TEXT NOT NULL,
	source TEXT NOT NULL,
	checksum TEXT NOT NULL,
	status TEXT NOT NULL,
	single_score INTEGER NOT NULL DEFAULT 0,
	dual_score INTEGER NOT NULL DEFAULT 0,
	flow_valves INTEGER NOT NULL DEFAULT 0,
	states_expanded INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	cache_hit INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_checksum ON runs(checksum, status);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS run_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	actor TEXT NOT NULL,
	action TEXT NOT NULL,
	reason TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id, created_at);
`

const runColumns = `id, label, source, checksum, status, single_score, dual_score, flow_valves,
	states_expanded, duration_ms, cache_hit, last_error, created_at, updated_at`

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *Store) CreateRun(ctx context.Context, run domain.Run) error {
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = now
	}
	if run.Status == "" {
		run.Status = domain.RunStatusPending
	}
	if run.Source == "" {
		run.Source = domain.RunSourceInline
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs(`+runColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Label, string(run.Source), run.Checksum, string(run.Status),
		run.SingleScore, run.DualScore, run.FlowValves, run.StatesExpanded, run.DurationMS,
		boolToInt(run.CacheHit), run.LastError, run.CreatedAt.Unix(), run.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return domain.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return result, nil
}

// LatestSolvedByChecksum returns the newest solved run for an input checksum.
func (s *Store) LatestSolvedByChecksum(ctx context.Context, checksum string) (domain.Run, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+runColumns+` FROM runs
		WHERE checksum = ? AND status = ?
		ORDER BY updated_at DESC, rowid DESC
		LIMIT 1`,
		checksum, string(domain.RunStatusSolved),
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Run{}, false, nil
	}
	if err != nil {
		return domain.Run{}, false, fmt.Errorf("lookup run by checksum: %w", err)
	}
	return run, true, nil
}

func (s *Store) UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus, lastError string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		string(status), lastError, time.Now().UTC().Unix(), runID,
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return expectOneRow(res, runID)
}

// CompleteRun stores the scores of a solved run and marks it solved.
func (s *Store) CompleteRun(ctx context.Context, run domain.Run) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET
			status = ?, single_score = ?, dual_score = ?, flow_valves = ?, states_expanded = ?,
			duration_ms = ?, cache_hit = ?, last_error = '', updated_at = ?
		WHERE id = ?`,
		string(domain.RunStatusSolved), run.SingleScore, run.DualScore, run.FlowValves, run.StatesExpanded,
		run.DurationMS, boolToInt(run.CacheHit), time.Now().UTC().Unix(), run.ID,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return expectOneRow(res, run.ID)
}

func (s *Store) LogRunEvent(ctx context.Context, entry domain.RunEvent) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	payload := string(entry.Payload)
	if payload == "" {
		payload = "{}"
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO run_events(run_id, actor, action, reason, payload, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.Actor, entry.Action, entry.Reason, payload, entry.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("log run event: %w", err)
	}
	return nil
}

func (s *Store) ListRunEvents(ctx context.Context, runID string, limit int) ([]domain.RunEvent, error) {
	if limit <= 0 {
		limit = 300
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, actor, action, reason, payload, created_at
		FROM run_events
		WHERE run_id = ?
		ORDER BY id ASC
		LIMIT ?`,
		runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list run events: %w", err)
	}
	defer rows.Close()

	result := make([]domain.RunEvent, 0)
	for rows.Next() {
		var item domain.RunEvent
		var payload string
		var createdAt int64
		if err := rows.Scan(&item.ID, &item.RunID, &item.Actor, &item.Action, &item.Reason, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		item.Payload = []byte(payload)
		item.CreatedAt = unixToTime(createdAt)
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run events: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (domain.Run, error) {
	var r domain.Run
	var source, status string
	var cacheHit int
	var created, updated int64
	if err := row.Scan(
		&r.ID, &r.Label, &source, &r.Checksum, &status, &r.SingleScore, &r.DualScore, &r.FlowValves,
		&r.StatesExpanded, &r.DurationMS, &cacheHit, &r.LastError, &created, &updated,
	); err != nil {
		return domain.Run{}, err
	}
	r.Source = domain.RunSource(source)
	r.Status = domain.RunStatus(status)
	r.CacheHit = cacheHit != 0
	r.CreatedAt = unixToTime(created)
	r.UpdatedAt = unixToTime(updated)
	return r, nil
}

func expectOneRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func unixToTime(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
