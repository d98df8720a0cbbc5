// Package store persists the seen-set and generated reports in SQLite.
// The database runs in WAL mode behind a single connection.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ppiankov/horizon/internal/worker"
)

// ErrNotFound is returned when a report does not exist
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS seen_items (
	id      TEXT PRIMARY KEY,
	seen_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS reports (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	payload    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
`

// Store is the SQLite-backed seen-set and report archive
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %q: %w", dir, err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}

	// One writer; also keeps an in-memory database alive across calls
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database %q: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Seen reports whether id has been included in an earlier report
func (s *Store) Seen(ctx context.Context, id string) (bool, error) {
	query, args, err := sq.Select("1").From("seen_items").Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("query seen item: %w", err)
	}
	return true, nil
}

// MarkSeen records ids in one transaction. Already-seen ids keep their
// original timestamp.
func (s *Store) MarkSeen(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stamp := s.now().UTC().Format(time.RFC3339)
	for _, chunk := range worker.Chunk(ids, 200) {
		insert := sq.Insert("seen_items").Columns("id", "seen_at").Suffix("ON CONFLICT(id) DO NOTHING")
		for _, id := range chunk {
			insert = insert.Values(id, stamp)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert seen items: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seen items: %w", err)
	}
	return nil
}

// SaveReport stores a serialized report, replacing any earlier payload with the same id
func (s *Store) SaveReport(ctx context.Context, id string, payload []byte) error {
	query, args, err := sq.Insert("reports").
		Columns("id", "created_at", "payload").
		Values(id, s.now().UTC().Format(time.RFC3339), payload).
		Suffix("ON CONFLICT(id) DO UPDATE SET payload = excluded.payload").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save report %s: %w", id, err)
	}
	return nil
}

// Report returns the payload of a stored report
func (s *Store) Report(ctx context.Context, id string) ([]byte, error) {
	query, args, err := sq.Select("payload").From("reports").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var payload []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("query report %s: %w", id, err)
	}
	return payload, nil
}

// ReportSummary identifies a stored report
type ReportSummary struct {
	ID        string
	CreatedAt time.Time
}

// RecentReports lists the newest reports first
func (s *Store) RecentReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	builder := sq.Select("id", "created_at").From("reports").OrderBy("created_at DESC", "id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ReportSummary
	for rows.Next() {
		var r ReportSummary
		var created string
		if err := rows.Scan(&r.ID, &created); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, r)
	}
	return out, rows.Err()
}
