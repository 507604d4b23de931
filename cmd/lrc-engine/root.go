package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lrc-engine/internal/app"
	"lrc-engine/internal/config"
)

var (
	// global flags
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "lrc-engine",
	Short: "synchronized lyrics daemon for MPRIS players",
	Long: `lrc-engine follows the playing track through playerctl, resolves LRC lyrics
from a sidecar file, the audio file's tags or remote providers, and broadcasts
the current line over a unix socket.

when run without a subcommand, it starts the daemon.`,
	Version: "1.0.0",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := app.New(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.Run(ctx)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/lrc-engine/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig reads the config file and sets up logging from it.
func loadConfig() (*config.Config, error) {
	// 先用默认级别输出加载配置时的日志
	app.SetupLogging(logLevel)

	var cfg *config.Config
	if configPath == "" {
		cfg = config.Load()
	} else {
		var err error
		if cfg, err = config.LoadFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", configPath, err)
		}
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	app.SetupLogging(cfg.LogLevel)
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
