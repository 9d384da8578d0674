package store

import "context"

// MediaStore is the persistent code index.
//
// Put is an upsert: indexing a code again replaces its message id, caption
// and IndexedAt. Every method fails with an error wrapping ErrUnavailable
// when the backend is unreachable or times out.
type MediaStore interface {
	Put(ctx context.Context, code string, sourceMessageID int, caption string) error
	Get(ctx context.Context, code string) (*MediaEntry, error)
	Delete(ctx context.Context, code string) (bool, error)

	// ListRecent returns entries ordered by IndexedAt, newest first.
	ListRecent(ctx context.Context, limit, offset int) ([]MediaEntry, error)

	// ListAfter returns up to limit entries that come after the given entry
	// in ListRecent order; nil starts at the newest. Unlike offset paging,
	// a write between calls neither skips nor repeats an entry.
	ListAfter(ctx context.Context, after *MediaEntry, limit int) ([]MediaEntry, error)
	Count(ctx context.Context) (int, error)

	// SearchByCode returns entries whose code contains pattern literally,
	// ordered by code. limit <= 0 means DefaultSearchLimit.
	SearchByCode(ctx context.Context, pattern string, limit int) ([]MediaEntry, error)

	Ping(ctx context.Context) error
	Close() error
}
