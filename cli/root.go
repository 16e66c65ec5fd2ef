// Package cli is the papertrade command tree.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/store"
)

type rootConfig struct {
	ConfigPath string
	LogLevel   string
}

func NewRootCmd() *cobra.Command {
	rc := &rootConfig{}

	cmd := &cobra.Command{
		Use:           "papertrade",
		Short:         "Papertrade — algorithmic trading strategy simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "", "Log level: debug|info|warn|error")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		return nil
	}

	cmd.AddCommand(
		newServeCmd(rc),
		newRunCmd(rc),
		newTradesCmd(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("papertrade (dev)")
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: file if given, defaults
// otherwise, with the log level flag taking precedence.
func loadConfig(rc *rootConfig) (*config.Config, error) {
	cfg := config.Default()
	if rc.ConfigPath != "" {
		loaded, err := config.LoadFromFile(rc.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	level := cfg.Log.Level
	if rc.LogLevel != "" {
		level = rc.LogLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	return cfg, nil
}

// openStore builds the configured store backend.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		return store.NewSQLite(cfg.Store.Path)
	case "postgres":
		return store.NewPostgres(cfg.Store.DSN, 5*time.Second)
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func logger() zerolog.Logger {
	return log.Logger
}
