package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nextlevelbuilder/codebot/internal/config"
	"github.com/nextlevelbuilder/codebot/internal/session"
	"github.com/nextlevelbuilder/codebot/internal/store"
	"github.com/nextlevelbuilder/codebot/internal/store/pg"
	"github.com/nextlevelbuilder/codebot/internal/store/sqlite"
)

func storeConfig(cfg *config.Config) store.StoreConfig {
	return store.StoreConfig{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		PostgresDSN: cfg.Storage.PostgresDSN,
		Timeout:     cfg.Storage.Timeout(),
	}
}

// openStore opens the configured backend. The Postgres backend applies
// pending migrations first.
func openStore(cfg *config.Config) (store.MediaStore, error) {
	sc := storeConfig(cfg)
	if sc.IsPostgres() {
		s, err := pg.Open(sc.PostgresDSN, sc.EffectiveTimeout())
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	}
	s, err := sqlite.Open(sc.Path, sc.EffectiveTimeout())
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return s, nil
}

// mustOpenStore opens the store for a CLI command, exiting on error.
func mustOpenStore(cfg *config.Config) store.MediaStore {
	if err := cfg.ValidateStorage(); err != nil {
		exitErr("%v", err)
	}
	s, err := openStore(cfg)
	if err != nil {
		exitErr("%v", err)
	}
	return s
}

// sessionStore is a session.Store that may need closing.
type sessionStore interface {
	session.Store
	Close() error
}

type memorySessions struct{ *session.MemoryStore }

func (memorySessions) Close() error { return nil }

func openSessions(ctx context.Context, cfg *config.Config) (sessionStore, error) {
	if cfg.Sessions.Backend == "redis" {
		ttl := cfg.Sessions.TTL()
		if ttl <= 0 {
			ttl = session.DefaultRedisTTL
		}
		rs, err := session.NewRedisStore(ctx, cfg.Sessions.RedisURL, ttl)
		if err != nil {
			return nil, fmt.Errorf("open redis sessions: %w", err)
		}
		slog.Info("sessions backend", "backend", "redis", "ttl", ttl)
		return rs, nil
	}
	slog.Info("sessions backend", "backend", "memory")
	return memorySessions{session.NewMemoryStore()}, nil
}
