// Package sqlite implements store.MediaStore on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/codebot/internal/store"
)

// MediaStore implements store.MediaStore backed by SQLite.
type MediaStore struct {
	db      *sql.DB
	mu      sync.RWMutex
	timeout time.Duration
	now     func() time.Time
}

// Open opens (or creates) a SQLite database at path and initializes the schema.
func Open(path string, timeout time.Duration) (*MediaStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if timeout <= 0 {
		timeout = store.DefaultTimeout
	}

	s := &MediaStore{db: db, timeout: timeout, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("media store opened", "driver", "sqlite", "path", path)
	return s, nil
}

func (s *MediaStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS media_entries (
			code TEXT PRIMARY KEY,
			message_id INTEGER NOT NULL,
			caption TEXT NOT NULL DEFAULT '',
			indexed_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_media_entries_indexed_at ON media_entries(indexed_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}
	return nil
}

// unavailable tags a driver or timeout failure as store.ErrUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
}

// Put inserts or replaces the entry for code.
func (s *MediaStore) Put(ctx context.Context, code string, sourceMessageID int, caption string) error {
	if err := store.ValidateCode(code); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO media_entries (code, message_id, caption, indexed_at)
		VALUES (?, ?, ?, ?)`,
		code, sourceMessageID, caption, s.now().UTC().UnixNano())
	if err != nil {
		return unavailable("put", err)
	}
	return nil
}

// Get returns the entry for code or store.ErrNotFound.
func (s *MediaStore) Get(ctx context.Context, code string) (*store.MediaEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var e store.MediaEntry
	var indexedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT code, message_id, caption, indexed_at FROM media_entries WHERE code = ?", code,
	).Scan(&e.Code, &e.SourceMessageID, &e.Caption, &indexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	e.IndexedAt = time.Unix(0, indexedAt).UTC()
	return &e, nil
}

// Delete removes the entry for code. Returns true if one existed.
func (s *MediaStore) Delete(ctx context.Context, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM media_entries WHERE code = ?", code)
	if err != nil {
		return false, unavailable("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("delete", err)
	}
	return n > 0, nil
}

// ListRecent returns entries newest first.
func (s *MediaStore) ListRecent(ctx context.Context, limit, offset int) ([]store.MediaEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT code, message_id, caption, indexed_at
		FROM media_entries
		ORDER BY indexed_at DESC, code ASC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, unavailable("list", err)
	}
	return scanEntries(rows, "list")
}

// ListAfter pages by the (indexed_at, code) key of the last entry seen.
func (s *MediaStore) ListAfter(ctx context.Context, after *store.MediaEntry, limit int) ([]store.MediaEntry, error) {
	if after == nil {
		return s.ListRecent(ctx, limit, 0)
	}
	if limit <= 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ts := after.IndexedAt.UnixNano()
	rows, err := s.db.QueryContext(ctx, `SELECT code, message_id, caption, indexed_at
		FROM media_entries
		WHERE indexed_at < ? OR (indexed_at = ? AND code > ?)
		ORDER BY indexed_at DESC, code ASC
		LIMIT ?`, ts, ts, after.Code, limit)
	if err != nil {
		return nil, unavailable("list", err)
	}
	return scanEntries(rows, "list")
}

// Count returns the number of indexed codes.
func (s *MediaStore) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media_entries").Scan(&n); err != nil {
		return 0, unavailable("count", err)
	}
	return n, nil
}

// SearchByCode returns entries whose code contains pattern, ordered by code.
// instr() keeps the match literal and case-sensitive, unlike LIKE.
func (s *MediaStore) SearchByCode(ctx context.Context, pattern string, limit int) ([]store.MediaEntry, error) {
	if limit <= 0 {
		limit = store.DefaultSearchLimit
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT code, message_id, caption, indexed_at
		FROM media_entries
		WHERE instr(code, ?) > 0
		ORDER BY code
		LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, unavailable("search", err)
	}
	return scanEntries(rows, "search")
}

func scanEntries(rows *sql.Rows, op string) ([]store.MediaEntry, error) {
	defer rows.Close()

	var entries []store.MediaEntry
	for rows.Next() {
		var e store.MediaEntry
		var indexedAt int64
		if err := rows.Scan(&e.Code, &e.SourceMessageID, &e.Caption, &indexedAt); err != nil {
			return nil, unavailable(op, err)
		}
		e.IndexedAt = time.Unix(0, indexedAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return entries, nil
}

// Ping checks that the database answers.
func (s *MediaStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the SQLite database.
func (s *MediaStore) Close() error {
	return s.db.Close()
}
