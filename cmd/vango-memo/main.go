package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/memo/internal/config"
	"github.com/vango-dev/memo/internal/errors"
	"github.com/vango-dev/memo/pkg/memo"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var configDir string

	rootCmd := &cobra.Command{
		Use:   "vango-memo",
		Short: "Run and inspect the memoized component engine",
		Long: `vango-memo drives the demo blog through the compose engine and
shows which components were rendered and which were cut off.

Commands:
  • demo    run the workload and print the final view
  • serve   run the workload behind the live inspector
  • top     watch per-component render and skip counts
  • export  record a profile to disk or S3`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "Directory containing memo.json")

	loadConfig := func() (*config.Config, *slog.Logger, error) {
		cfg, err := config.Load(configDir)
		if err != nil {
			return nil, nil, err
		}
		memo.DebugMode = cfg.Debug
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		slog.SetDefault(logger)
		return cfg, logger, nil
	}

	rootCmd.AddCommand(
		demoCmd(loadConfig),
		serveCmd(loadConfig),
		topCmd(loadConfig),
		exportCmd(loadConfig),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(errors.FromError(err))
		os.Exit(1)
	}
}

// configLoader loads memo.json and installs the configured logger.
type configLoader func() (*config.Config, *slog.Logger, error)
