package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ps2jpmod/launcher/internal/config"
	"github.com/ps2jpmod/launcher/internal/service/stager"
	"github.com/ps2jpmod/launcher/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// rootCmd represents the base command for staging an update payload.
	rootCmd = &cobra.Command{
		Use:   "mod-stager <new-executable> <new-document>",
		Short: "Copy a release payload into the staging directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &stager.Options{
				ConfigPath:     configPath,
				ExecutablePath: args[0],
				DocumentPath:   args[1],
			}

			return stager.Run(ctx, options)
		},
	}
)

// Execute runs the mod-stager CLI and exits with non-zero status on error.
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
}
