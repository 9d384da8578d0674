package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/codebot/internal/config"
	"github.com/nextlevelbuilder/codebot/internal/cron"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and storage health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("codebot doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults + env)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	cfg.ResolveToken()
	masked := cfg.MaskedCopy()

	fmt.Println()
	fmt.Println("  Telegram:")
	checkValue("Token", masked.Telegram.Token)
	checkValue("Channel", formatID(cfg.Telegram.ChannelID))
	checkValue("Admin", formatID(cfg.Telegram.AdminUserID))

	fmt.Println()
	fmt.Println("  Storage:")
	checkValue("Driver", cfg.Storage.Driver)
	if err := cfg.ValidateStorage(); err != nil {
		checkValue("Status", "INVALID: "+err.Error())
	} else if s, err := openStore(cfg); err != nil {
		checkValue("Status", "ERROR: "+err.Error())
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Ping(ctx); err != nil {
			checkValue("Status", "UNREACHABLE: "+err.Error())
		} else if n, err := s.Count(ctx); err == nil {
			checkValue("Status", fmt.Sprintf("OK (%d codes)", n))
		}
		cancel()
		s.Close()
	}

	fmt.Println()
	fmt.Println("  Sessions:")
	checkValue("Backend", cfg.Sessions.Backend)
	if cfg.Sessions.Backend == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if rs, err := openSessions(ctx, cfg); err != nil {
			checkValue("Status", "ERROR: "+err.Error())
		} else {
			checkValue("Status", "OK")
			rs.Close()
		}
		cancel()
	}

	fmt.Println()
	fmt.Println("  Backup:")
	switch {
	case cfg.Backup.Schedule == "":
		checkValue("Schedule", "")
	default:
		if sched, err := cron.New("backup", cfg.Backup.Schedule, nil); err != nil {
			checkValue("Schedule", "INVALID: "+err.Error())
		} else if next, err := sched.Next(time.Now()); err == nil {
			checkValue("Schedule", fmt.Sprintf("%s (next %s)", cfg.Backup.Schedule, next.Format(time.DateTime)))
		}
		checkValue("Target", cfg.Backup.Target)
	}

	fmt.Println()
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Problems found:\n%v\n", err)
		return
	}
	fmt.Println("Doctor check complete.")
}

func checkValue(name, value string) {
	if value == "" {
		value = "(not configured)"
	}
	fmt.Printf("    %-12s %s\n", name+":", value)
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return fmt.Sprintf("%d", id)
}
