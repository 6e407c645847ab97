package launcher

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/ps2jpmod/launcher/internal/logger"
	"github.com/ps2jpmod/launcher/internal/service/updater"
)

// defaultPollInterval is how often the update marker is re-checked.
const defaultPollInterval = 1 * time.Second

var errProgramRequired = errors.New("program to launch is not specified")

// Options are inputs accepted by the launcher entry point.
type Options struct {
	// Program is the executable to start once no update is in flight.
	Program string
	// Args are passed to the program verbatim.
	Args []string
	// PollInterval overrides how often the marker is re-checked (0 keeps the default).
	PollInterval time.Duration
}

// launcher waits out an in-flight update and then starts the program.
type launcher struct {
	pollInterval time.Duration
	execute      func(ctx context.Context, program string, args []string) error
}

// Run blocks while an update is in progress and then starts the program,
// waiting for it to finish. It is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "mod-launcher")

	if opts.Program == "" {
		return errProgramRequired
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	l := &launcher{
		pollInterval: pollInterval,
		execute: func(ctx context.Context, program string, args []string) error {
			cmd := exec.CommandContext(ctx, program, args...)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr

			return cmd.Run()
		},
	}

	return l.Run(ctx, opts.Program, opts.Args)
}

// Run polls the update marker until it is gone, reclaiming stale markers,
// and then hands off to the program.
func (l *launcher) Run(ctx context.Context, program string, args []string) error {
	for {
		logger.Debug(ctx, "Checking for the presence of an update marker")

		fileInfo, err := os.Stat(updater.MarkerFilename)
		if err != nil {
			if !os.IsNotExist(err) {
				return err
			}

			logger.InfoKV(ctx, "No update in progress, starting the program", "program", program)

			return l.execute(ctx, program, args)
		}

		if time.Since(fileInfo.ModTime()) > updater.MarkerLifetime {
			logger.Info(ctx, "The update marker is too old, the update may have stalled. Removing it")
			_ = os.Remove(updater.MarkerFilename)

			continue
		}

		logger.Info(ctx, "An update is in progress, waiting")

		timer := time.NewTimer(l.pollInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
