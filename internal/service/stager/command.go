package stager

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ps2jpmod/launcher/internal/config"
	"github.com/ps2jpmod/launcher/internal/logger"
	"github.com/ps2jpmod/launcher/internal/service/updater"
	"github.com/ps2jpmod/launcher/internal/version"
)

// Options contains inputs for the stager entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// ExecutablePath is the freshly built application executable to stage.
	ExecutablePath string
	// DocumentPath is the new document to stage.
	DocumentPath string
}

// stager copies a release payload into the staging directory and records
// its checksums. It is unexported—callers should use Run.
type stager struct {
	cfg *config.Config
	// staged maps staged file names to their source paths.
	staged map[string]string
	// manifest is written next to the payload for release bookkeeping.
	manifest *Manifest
}

// errUpdaterRunning indicates that staging was attempted while an update is in flight.
var errUpdaterRunning = errors.New("the updater is running now")

// Run executes the staging workflow.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "mod-stager")

	if updater.IsUpdaterRunningNow(ctx) {
		return errUpdaterRunning
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	s := &stager{
		cfg: cfg,
		staged: map[string]string{
			cfg.AppExecutable:  opts.ExecutablePath,
			cfg.StagedDocument: opts.DocumentPath,
		},
		manifest: NewManifest(),
	}

	if err = s.Run(ctx); err != nil {
		return fmt.Errorf("stager failed: %w", err)
	}

	logger.Info(ctx, "Stager completed successfully")

	return nil
}

// Run copies the payload into the staging directory and writes the manifest.
func (s *stager) Run(ctx context.Context) error {
	logger.InfoKV(ctx, "Staging the update payload", "staging_dir", s.cfg.StagingDir)

	if err := s.stagePayload(ctx); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Saving the staging manifest", "path", s.manifestPath())

	if err := s.saveManifest(); err != nil {
		return err
	}

	s.printNextSteps(ctx)

	return nil
}

// stagePayload copies each payload file under its conventional staged name
// and records its checksum in the manifest.
func (s *stager) stagePayload(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.StagingDir, updater.DefaultFileMode); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}

	for stagedName, sourcePath := range s.staged {
		if sourcePath == "" {
			return fmt.Errorf("%s: %w", stagedName, errEmptySourcePath)
		}

		stagedPath := filepath.Join(s.cfg.StagingDir, stagedName)
		if err := copyFile(sourcePath, stagedPath); err != nil {
			return fmt.Errorf("stage %s: %w", stagedName, err)
		}

		checksum, err := FileChecksum(stagedPath)
		if err != nil {
			return err
		}

		s.manifest.Files[stagedName] = base64.StdEncoding.EncodeToString(checksum)

		logger.InfoKV(ctx, "Staged file", "source", sourcePath, "staged", stagedPath)
	}

	return nil
}

// saveManifest writes the manifest next to the staged payload.
func (s *stager) saveManifest() error {
	contents, err := yaml.Marshal(s.manifest)
	if err != nil {
		return err
	}

	return os.WriteFile(s.manifestPath(), contents, updater.DefaultFileMode)
}

func (s *stager) manifestPath() string {
	return filepath.Join(s.cfg.StagingDir, ManifestFilename)
}

// printNextSteps logs human-readable guidance for next actions with the staged files.
func (s *stager) printNextSteps(ctx context.Context) {
	files := make([]string, 0, len(s.manifest.Files))
	for name := range s.manifest.Files {
		files = append(files, name)
	}

	sort.Strings(files)

	var builder strings.Builder

	builder.WriteString("The following files are staged in ")
	builder.WriteString(s.cfg.StagingDir)
	builder.WriteString(":\n")
	builder.WriteString(strings.Join(files, ",\n"))
	builder.WriteString("\n\nTo apply them, close ")
	builder.WriteString(s.cfg.AppExecutable)
	builder.WriteString(" and run: mod-updater")

	logger.Info(ctx, builder.String())
}

// copyFile copies source to target, overwriting it, and flushes the copy to disk.
func copyFile(sourcePath, targetPath string) error {
	source, err := os.Open(filepath.Clean(sourcePath))
	if err != nil {
		return err
	}

	defer func() {
		_ = source.Close()
	}()

	target, err := os.OpenFile(filepath.Clean(targetPath),
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC, updater.DefaultFileMode)
	if err != nil {
		return err
	}

	if _, err = io.Copy(target, source); err != nil {
		_ = target.Close()

		return err
	}

	if err = target.Sync(); err != nil {
		_ = target.Close()

		return err
	}

	return target.Close()
}

// NewManifest produces a Manifest stamped with the current build version.
func NewManifest() *Manifest {
	return &Manifest{
		VersionNumber: version.Short(),
		Files:         make(map[string]string, defaultMapCapacity),
	}
}
