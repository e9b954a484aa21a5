// Package history keeps a persistent log of finished transfer sessions.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kandev/xferterm/internal/db"
)

// Entry is one finished transfer session.
type Entry struct {
	ID             string    `db:"id"`
	Direction      string    `db:"direction"`
	Program        string    `db:"program"`
	Args           string    `db:"args"`
	StartedAt      time.Time `db:"started_at"`
	EndedAt        time.Time `db:"ended_at"`
	EndReason      string    `db:"end_reason"`
	ExitCode       int       `db:"exit_code"`
	Error          string    `db:"error"`
	BytesToPeer    int64     `db:"bytes_to_peer"`
	BytesToDisplay int64     `db:"bytes_to_display"`
	BytesFromPeer  int64     `db:"bytes_from_peer"`
}

// Duration is the wall-clock length of the session.
func (e Entry) Duration() time.Duration {
	return e.EndedAt.Sub(e.StartedAt)
}

// Store implements transfer history on SQLite.
type Store struct {
	db     *sqlx.DB
	ownsDB bool
}

// Open opens the history database at path, creating it if needed.
func Open(path string) (*Store, error) {
	conn, err := db.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	s, err := newStore(conn, true)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// NewStore uses an existing connection. Close leaves the connection open.
func NewStore(conn *sqlx.DB) (*Store, error) {
	return newStore(conn, false)
}

func newStore(conn *sqlx.DB, ownsDB bool) (*Store, error) {
	s := &Store{db: conn, ownsDB: ownsDB}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		direction TEXT NOT NULL,
		program TEXT NOT NULL,
		args TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP NOT NULL,
		end_reason TEXT NOT NULL,
		exit_code INTEGER NOT NULL DEFAULT -1,
		error TEXT NOT NULL DEFAULT '',
		bytes_to_peer INTEGER NOT NULL DEFAULT 0,
		bytes_to_display INTEGER NOT NULL DEFAULT 0,
		bytes_from_peer INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_started_at ON transfers(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores e. Recording the same session twice keeps the newer row.
func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO transfers (
			id, direction, program, args, started_at, ended_at, end_reason,
			exit_code, error, bytes_to_peer, bytes_to_display, bytes_from_peer
		) VALUES (
			:id, :direction, :program, :args, :started_at, :ended_at, :end_reason,
			:exit_code, :error, :bytes_to_peer, :bytes_to_display, :bytes_from_peer
		)
		ON CONFLICT(id) DO UPDATE SET
			ended_at = excluded.ended_at,
			end_reason = excluded.end_reason,
			exit_code = excluded.exit_code,
			error = excluded.error,
			bytes_to_peer = excluded.bytes_to_peer,
			bytes_to_display = excluded.bytes_to_display,
			bytes_from_peer = excluded.bytes_from_peer
	`, e)
	if err != nil {
		return fmt.Errorf("failed to record transfer %s: %w", e.ID, err)
	}
	return nil
}

// List returns up to limit entries, newest first. A non-positive limit
// returns every entry.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT * FROM transfers ORDER BY started_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var entries []Entry
	if err := s.db.SelectContext(ctx, &entries, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	return entries, nil
}

func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
