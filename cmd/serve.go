package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/codebot/internal/backup"
	"github.com/nextlevelbuilder/codebot/internal/channels/telegram"
	"github.com/nextlevelbuilder/codebot/internal/config"
	"github.com/nextlevelbuilder/codebot/internal/cron"
	httpapi "github.com/nextlevelbuilder/codebot/internal/http"
	"github.com/nextlevelbuilder/codebot/internal/router"
	"github.com/nextlevelbuilder/codebot/internal/store"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (default command)",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	cfg, level := loadConfig()
	if err := cfg.Validate(); err != nil {
		exitErr("invalid config:\n%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel := initOTelExporter(ctx, cfg)
	defer shutdownOTel()

	base, err := openStore(cfg)
	if err != nil {
		exitErr("%v", err)
	}
	defer base.Close()
	st := store.Cached(base, cfg.Cache.Size, cfg.Cache.TTL())

	sessions, err := openSessions(ctx, cfg)
	if err != nil {
		exitErr("%v", err)
	}
	defer sessions.Close()

	tg, err := telegram.New(cfg.Telegram.Token)
	if err != nil {
		exitErr("%v", err)
	}

	r := router.New(router.Config{
		ChannelID: cfg.Telegram.ChannelID,
		AdminID:   cfg.Telegram.AdminUserID,
		PageSize:  cfg.Telegram.PageSize,
	}, st, sessions, tg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tg.Run(gctx, r) })

	if cfg.Metrics.Listen != "" {
		srv := httpapi.NewServer(cfg.Metrics.Listen, cfg.Metrics.Token, base)
		g.Go(func() error { return srv.Run(gctx) })
	}

	if w := newConfigWatcher(level); w != nil {
		g.Go(func() error { return w.Run(gctx) })
	}

	if sched := newBackupScheduler(cfg, st); sched != nil {
		g.Go(func() error { return sched.Run(gctx) })
	}

	slog.Info("codebot started",
		"version", Version,
		"channel_id", cfg.Telegram.ChannelID,
		"storage", cfg.Storage.Driver,
		"sessions", cfg.Sessions.Backend,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("codebot stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("codebot stopped")
}

// newConfigWatcher watches the config file for log level changes. It
// returns nil when there is no file to watch.
func newConfigWatcher(level *slog.LevelVar) *config.Watcher {
	path := resolveConfigPath()
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	w, err := config.NewWatcher(path)
	if err != nil {
		slog.Warn("config watcher disabled", "error", err)
		return nil
	}
	w.OnChange(config.LevelHandler(level))
	return w
}

// newBackupScheduler returns the scheduled export, or nil when no schedule
// is configured.
func newBackupScheduler(cfg *config.Config, st store.MediaStore) *cron.Scheduler {
	if cfg.Backup.Schedule == "" {
		return nil
	}
	if cfg.Backup.Target == "" {
		slog.Warn("backup schedule set without a target, scheduled backups disabled")
		return nil
	}

	target := cfg.Backup.Target
	sched, err := cron.New("backup", cfg.Backup.Schedule, func(ctx context.Context) error {
		_, err := backup.ExportTo(ctx, st, target)
		return err
	})
	if err != nil {
		exitErr("%v", err)
	}
	return sched
}
