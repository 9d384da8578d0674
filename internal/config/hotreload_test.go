package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestWatcher_ReloadsLogLevel(t *testing.T) {
	defer goleak.VerifyNone(t)
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "codebot.json")
	if err := os.WriteFile(path, []byte(`{"log": {"level": "info"}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.debounce = 20 * time.Millisecond

	var level slog.LevelVar
	w.OnChange(LevelHandler(&level))
	changed := make(chan *Config, 1)
	w.OnChange(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"log": {"level": "debug"}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changed:
		if cfg.Log.Level != "debug" {
			t.Errorf("reloaded level = %q", cfg.Log.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
	if level.Level() != slog.LevelDebug {
		t.Errorf("LevelVar = %v, want debug", level.Level())
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}
