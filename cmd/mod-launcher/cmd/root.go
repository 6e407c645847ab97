package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ps2jpmod/launcher/internal/service/launcher"
	"github.com/ps2jpmod/launcher/internal/version"
)

var (
	// pollInterval between update marker checks.
	pollInterval time.Duration

	// rootCmd represents the base command for starting a program after updates settle.
	rootCmd = &cobra.Command{
		Use:   "mod-launcher <program> [args...]",
		Short: "Start a program once no update is in progress",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &launcher.Options{
				Program:      args[0],
				Args:         args[1:],
				PollInterval: pollInterval,
			}

			return launcher.Run(ctx, options)
		},
	}
)

// Execute runs the mod-launcher CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().DurationVarP(&pollInterval, "poll", "p", 0, "interval between update marker checks (0 keeps the default)")
}
