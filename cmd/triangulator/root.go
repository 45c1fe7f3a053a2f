package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/triangulator/internal/config"
	"github.com/aretw0/triangulator/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "triangulator",
	Short: "Triangulator computes Delaunay triangulations of planar point sets",
	Long: `Triangulator fetches point sets from a point-set manager (or reads them
from disk) and serves their Delaunay triangulation over HTTP, MCP or the command line.`,
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
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (overrides config)")
}

// loadConfig resolves the configuration of cmd: file, then environment,
// then persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, os.Environ())
	if err != nil {
		return config.Config{}, nil, err
	}

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
		if err := cfg.Validate(); err != nil {
			return config.Config{}, nil, err
		}
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.New(level, cfg.Log.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
