package updater

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ps2jpmod/launcher/internal/config"
	"github.com/ps2jpmod/launcher/internal/logger"
)

var (
	errUpdaterAlreadyRunning = errors.New("the updater is already running")

	// ErrApplicationRunning is returned when the application is still alive
	// at liveness-check time. No target file is touched on this path.
	ErrApplicationRunning = errors.New("the application is still running")
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// GraceDelay overrides the configured delay before the liveness check.
	// A negative value keeps the configured one.
	GraceDelay time.Duration
}

// runner holds the collaborators for a single update execution.
// It is intentionally unexported—call Run(ctx, Options) from callers.
// Every collaborator has a real default and is swapped out in tests.
type runner struct {
	cfg       *config.Config // Update layout and policy.
	processes processLister  // OS process table for the liveness check.
	console   io.Writer      // User-facing output for the blocked path.
	keys      io.Reader      // User acknowledgement input for the blocked path.
	launch    func(executablePath string) error
}

// Run executes the replace-and-relaunch cycle and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "mod-updater")

	r, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}

	defer r.cleanup(ctx)

	if err = r.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Updater run failed", "error", err)
		return err
	}

	logger.Info(ctx, "Updater completed")

	return nil
}

// newRunner prepares the run and writes a marker to avoid concurrent runs.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	if IsUpdaterRunningNow(ctx) {
		return nil, errUpdaterAlreadyRunning
	}

	updateMarker, err := os.Create(MarkerFilename)
	if err != nil {
		return nil, err
	}

	if err = updateMarker.Close(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.GraceDelay >= 0 {
		cfg.GraceDelay = opts.GraceDelay
	}

	return &runner{
		cfg:       cfg,
		processes: systemProcesses{},
		console:   os.Stdout,
		keys:      os.Stdin,
		launch:    startDetached,
	}, nil
}

// Run executes the linear update sequence for this runner instance:
// 1) Wait out the grace delay.
// 2) Check the application is gone; block and bail out if it is not.
// 3) Replace the document, then the executable.
// 4) Delete the staged payload.
// 5) Relaunch the new executable detached.
//
// There is no retry edge: a blocked run ends here and the user re-invokes
// the updater after closing the application.
func (r *runner) Run(ctx context.Context) error {
	if err := r.waitGraceDelay(ctx); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Checking whether the application is still running",
		"image", r.cfg.AppExecutable)

	running, err := isImageRunning(r.processes, r.cfg.AppExecutable, os.Getpid())
	if err != nil {
		// Without a readable process table the guard cannot be trusted,
		// so no file is touched regardless of the error policy.
		return fmt.Errorf("query process list: %w", err)
	}

	if running {
		r.waitForAcknowledgement()
		return fmt.Errorf("%s: %w", r.cfg.AppExecutable, ErrApplicationRunning)
	}

	if err = r.replaceTargets(ctx); err != nil {
		return err
	}

	if err = r.cleanupStaging(ctx); err != nil {
		return err
	}

	return r.relaunch(ctx)
}

// waitGraceDelay suspends execution so the calling application has time to
// fully exit before the liveness check. This is a pragmatic wait, not a
// synchronization primitive.
func (r *runner) waitGraceDelay(ctx context.Context) error {
	if r.cfg.GraceDelay <= 0 {
		return nil
	}

	logger.InfoKV(ctx, "Waiting for the application to exit", "delay", r.cfg.GraceDelay)

	timer := time.NewTimer(r.cfg.GraceDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitForAcknowledgement tells the user the application must be closed and
// blocks until a key is pressed. The message is the one piece of direct
// console output this tool produces.
func (r *runner) waitForAcknowledgement() {
	fmt.Fprintf(r.console, "%s is still running. Close the application and run the updater again.\n", r.cfg.AppExecutable)
	fmt.Fprint(r.console, "Press Enter to exit...")

	_, _ = bufio.NewReader(r.keys).ReadString('\n')
}

// replaceTargets copies the staged document and executable over the live files.
func (r *runner) replaceTargets(ctx context.Context) error {
	logger.InfoKV(ctx, "Replacing the document",
		"source", r.cfg.StagedDocumentPath(), "target", r.cfg.TargetDocument)

	err := replaceFile(r.cfg.StagedDocumentPath(), r.cfg.TargetDocument)
	if err = r.resolveFailure(ctx, "replace document", err); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Replacing the executable",
		"source", r.cfg.StagedExecutablePath(), "target", r.cfg.AppExecutable)

	err = replaceFile(r.cfg.StagedExecutablePath(), r.cfg.AppExecutable)

	return r.resolveFailure(ctx, "replace executable", err)
}

// cleanupStaging deletes the staged payload. Under the default policy this is
// best-effort and never blocks the relaunch.
func (r *runner) cleanupStaging(ctx context.Context) error {
	logger.Info(ctx, "Deleting the staged payload")

	for _, path := range []string{r.cfg.StagedExecutablePath(), r.cfg.StagedDocumentPath()} {
		if err := r.resolveFailure(ctx, "delete staged file", os.Remove(path)); err != nil {
			return err
		}
	}

	return nil
}

// relaunch starts the freshly installed executable as a detached process.
func (r *runner) relaunch(ctx context.Context) error {
	executablePath, err := filepath.Abs(r.cfg.AppExecutable)
	if err != nil {
		return r.resolveFailure(ctx, "resolve executable path", err)
	}

	logger.InfoKV(ctx, "Starting the application", "executable", executablePath)

	return r.resolveFailure(ctx, "start application", r.launch(executablePath))
}

// resolveFailure applies the configured error policy to a step result:
// fail-fast surfaces the error, continue logs it and lets the run proceed,
// matching the original tool's unconditional flow.
func (r *runner) resolveFailure(ctx context.Context, step string, err error) error {
	if err == nil {
		return nil
	}

	if r.cfg.ErrorPolicy == config.PolicyFailFast {
		return fmt.Errorf("%s: %w", step, err)
	}

	logger.WarnKV(ctx, "Continuing after a failed step", "step", step, "error", err)

	return nil
}

// cleanup removes the running marker.
func (r *runner) cleanup(ctx context.Context) {
	if _, err := os.Stat(MarkerFilename); err == nil {
		_ = os.Remove(MarkerFilename)
	}

	logger.Info(ctx, "The updater has been stopped")
}
