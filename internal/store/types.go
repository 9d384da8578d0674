package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no entry exists for a code.
	ErrNotFound = errors.New("entry not found")

	// ErrUnavailable is returned when the persistence layer cannot be reached
	// or does not answer within the configured timeout.
	ErrUnavailable = errors.New("storage unavailable")
)

// DefaultSearchLimit caps SearchByCode results when the caller passes 0.
const DefaultSearchLimit = 20

// DefaultTimeout bounds a single storage call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// MediaEntry maps a code to the channel message that carries the media.
type MediaEntry struct {
	Code            string    `json:"code" db:"code"`
	SourceMessageID int       `json:"source_message_id" db:"message_id"`
	Caption         string    `json:"caption,omitempty" db:"caption"`
	IndexedAt       time.Time `json:"indexed_at" db:"indexed_at"`
}

// StoreConfig selects and configures a MediaStore backend.
type StoreConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string

	// Path is the SQLite database file.
	Path string

	// PostgresDSN is the Postgres connection string (postgres driver only).
	PostgresDSN string

	// Timeout bounds each storage call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// IsPostgres returns true if the config selects the Postgres backend.
func (c StoreConfig) IsPostgres() bool {
	return c.Driver == "postgres" && c.PostgresDSN != ""
}

// EffectiveTimeout returns Timeout or DefaultTimeout when unset.
func (c StoreConfig) EffectiveTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}
