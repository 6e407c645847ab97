package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ps2jpmod/launcher/internal/config"
	"github.com/ps2jpmod/launcher/internal/logger"
	"github.com/ps2jpmod/launcher/internal/service/updater"
	"github.com/ps2jpmod/launcher/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// graceDelay overrides the configured wait before the liveness check.
	graceDelay time.Duration

	// logLevel sets the minimum level for log output.
	logLevel string

	// rootCmd represents the base command for applying a staged update.
	rootCmd = &cobra.Command{
		Use:   "mod-updater",
		Short: "Replace the application with the staged update and relaunch it",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			options := &updater.Options{
				ConfigPath: configPath,
				GraceDelay: graceDelay,
			}

			return updater.Run(ctx, options)
		},
	}
)

// Execute runs the mod-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().DurationVarP(&graceDelay, "grace", "g", -1, "wait before the liveness check (negative keeps the configured delay)")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "minimum log level (debug, info, warn, error, fatal)")
}
