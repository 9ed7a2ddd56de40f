package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/firestream"
	"github.com/aretw0/firestream/internal/config"
	"github.com/aretw0/firestream/internal/logging"
	"github.com/aretw0/firestream/pkg/domain"
)

var rootCmd = &cobra.Command{
	Use:   "firestream",
	Short: "Firestream is a reactive driver for an auth and realtime database backend",
	Long: `Firestream turns commands into correlated responses and exposes the
account state and the database tree as shared, lazily started streams.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "firestream.yaml", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// setup loads the configuration and builds the logger for cmd.
func setup(cmd *cobra.Command) (domain.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return cfg, nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	return cfg, logging.New(level), nil
}

// openApp opens the default App with the logger of the command.
func openApp(cfg domain.Config, logger *slog.Logger, opts ...firestream.Option) (*firestream.App, error) {
	return firestream.New(cfg, firestream.DefaultName, append([]firestream.Option{firestream.WithLogger(logger)}, opts...)...)
}
