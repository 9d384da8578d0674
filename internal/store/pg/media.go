// Package pg implements store.MediaStore on Postgres.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nextlevelbuilder/codebot/internal/store"
)

// PGMediaStore implements store.MediaStore backed by Postgres.
type PGMediaStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPGMediaStore wraps an open pgx database. The schema must already be
// migrated (see Migrate).
func NewPGMediaStore(db *sql.DB, timeout time.Duration) *PGMediaStore {
	if timeout <= 0 {
		timeout = store.DefaultTimeout
	}
	return &PGMediaStore{db: sqlx.NewDb(db, "pgx"), timeout: timeout}
}

// Open connects to dsn, applies migrations and returns the store.
func Open(dsn string, timeout time.Duration) (*PGMediaStore, error) {
	if err := Migrate(dsn); err != nil {
		return nil, err
	}
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, err
	}
	return NewPGMediaStore(db, timeout), nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
}

func (s *PGMediaStore) Put(ctx context.Context, code string, sourceMessageID int, caption string) error {
	if err := store.ValidateCode(code); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO media_entries (code, message_id, caption, indexed_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (code) DO UPDATE SET
		   message_id = EXCLUDED.message_id,
		   caption = EXCLUDED.caption,
		   indexed_at = EXCLUDED.indexed_at`,
		code, sourceMessageID, caption, time.Now().UTC(),
	)
	if err != nil {
		return unavailable("put", err)
	}
	return nil
}

func (s *PGMediaStore) Get(ctx context.Context, code string) (*store.MediaEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var e store.MediaEntry
	err := s.db.GetContext(ctx, &e,
		"SELECT code, message_id, caption, indexed_at FROM media_entries WHERE code = $1", code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return &e, nil
}

func (s *PGMediaStore) Delete(ctx context.Context, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, "DELETE FROM media_entries WHERE code = $1", code)
	if err != nil {
		return false, unavailable("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("delete", err)
	}
	return n > 0, nil
}

func (s *PGMediaStore) ListRecent(ctx context.Context, limit, offset int) ([]store.MediaEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var entries []store.MediaEntry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT code, message_id, caption, indexed_at FROM media_entries
		 ORDER BY indexed_at DESC, code ASC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, unavailable("list", err)
	}
	return entries, nil
}

func (s *PGMediaStore) ListAfter(ctx context.Context, after *store.MediaEntry, limit int) ([]store.MediaEntry, error) {
	if after == nil {
		return s.ListRecent(ctx, limit, 0)
	}
	if limit <= 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var entries []store.MediaEntry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT code, message_id, caption, indexed_at FROM media_entries
		 WHERE indexed_at < $1 OR (indexed_at = $1 AND code > $2)
		 ORDER BY indexed_at DESC, code ASC
		 LIMIT $3`, after.IndexedAt, after.Code, limit)
	if err != nil {
		return nil, unavailable("list", err)
	}
	return entries, nil
}

func (s *PGMediaStore) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM media_entries"); err != nil {
		return 0, unavailable("count", err)
	}
	return n, nil
}

// SearchByCode uses strpos() so that % and _ in the pattern match literally.
func (s *PGMediaStore) SearchByCode(ctx context.Context, pattern string, limit int) ([]store.MediaEntry, error) {
	if limit <= 0 {
		limit = store.DefaultSearchLimit
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var entries []store.MediaEntry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT code, message_id, caption, indexed_at FROM media_entries
		 WHERE strpos(code, $1) > 0
		 ORDER BY code
		 LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, unavailable("search", err)
	}
	return entries, nil
}

func (s *PGMediaStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *PGMediaStore) Close() error {
	return s.db.Close()
}
