package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/codebot/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "codebot",
	Short: "Telegram bot that indexes channel media by code",
	Long: "codebot watches a Telegram channel, indexes every media post by the codes in its caption\n" +
		"(e.g. MOV123) and sends the original post to anyone who asks for a code.",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $CODEBOT_CONFIG or codebot.json5)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("codebot %s\n", Version)
		},
	}
}

// resolveConfigPath returns the config file path: --config, then
// $CODEBOT_CONFIG, then codebot.json5 in the working directory.
func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("CODEBOT_CONFIG"); v != "" {
		return v
	}
	return "codebot.json5"
}

// loadConfig loads the config, resolves the keyring token and sets up
// logging. It exits on error.
func loadConfig() (*config.Config, *slog.LevelVar) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ResolveToken(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
		os.Exit(1)
	}
	return cfg, setupLogging(cfg)
}

// setupLogging installs the default slog handler. The returned LevelVar lets
// the config watcher change the level at runtime.
func setupLogging(cfg *config.Config) *slog.LevelVar {
	level := new(slog.LevelVar)
	level.Set(config.ParseLevel(cfg.Log.Level))
	if verbose {
		level.Set(slog.LevelDebug)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return level
}

// exitErr prints err and exits.
func exitErr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
