package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the update layout shared by the launcher binaries.
type Config struct {
	// AppExecutable is the file name of the application executable.
	// It doubles as the process image name for the liveness check,
	// so it must be a bare file name without directory components.
	AppExecutable string `yaml:"app_executable"`
	// StagingDir is the directory holding the staged update payload.
	StagingDir string `yaml:"staging_dir"`
	// StagedDocument is the staged document file name inside StagingDir.
	StagedDocument string `yaml:"staged_document"`
	// TargetDocument is the live, localized document file name.
	TargetDocument string `yaml:"target_document"`
	// GraceDelay is how long the updater waits before the liveness check,
	// giving the calling application time to exit.
	GraceDelay time.Duration `yaml:"grace_delay"`
	// ErrorPolicy selects how replace/cleanup/launch failures are handled:
	// "continue" keeps going, "fail-fast" aborts on the first failure.
	ErrorPolicy string `yaml:"error_policy"`
}

const (
	// DefaultConfigFilename is the default filename for launcher settings.
	DefaultConfigFilename = "mod-launcher-settings.yaml"

	// DefaultAppExecutable is the application binary replaced and relaunched by the updater.
	DefaultAppExecutable = "PS2JPMod.exe"

	// DefaultStagingDir is where the release process places the update payload.
	DefaultStagingDir = "data"

	// DefaultStagedDocument is the document file name inside the staging directory.
	DefaultStagedDocument = "default.txt"

	// DefaultTargetDocument is the localized read-me shipped next to the executable.
	DefaultTargetDocument = "はじめにお読みください.txt"

	// DefaultGraceDelay is the pragmatic wait before the liveness check.
	DefaultGraceDelay = 3 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// PolicyContinue reproduces the reference behavior: log failures and keep going.
	PolicyContinue = "continue"

	// PolicyFailFast aborts the run on the first replace/cleanup/launch failure.
	PolicyFailFast = "fail-fast"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errAppExecutableRequired is returned when the application executable name is missing.
	errAppExecutableRequired = errors.New("application executable name must be provided")
	// errAppExecutableNotBare is returned when the executable name contains directory components.
	errAppExecutableNotBare = errors.New("application executable must be a bare file name")
	// errNegativeGraceDelay is returned when the grace delay is negative.
	errNegativeGraceDelay = errors.New("grace delay must not be negative")
	// errUnknownErrorPolicy is returned for policies other than continue/fail-fast.
	errUnknownErrorPolicy = errors.New("unknown error policy")
)

// Default returns settings matching the compiled-in layout of the original tool.
func Default() *Config {
	return &Config{
		AppExecutable:  DefaultAppExecutable,
		StagingDir:     DefaultStagingDir,
		StagedDocument: DefaultStagedDocument,
		TargetDocument: DefaultTargetDocument,
		GraceDelay:     DefaultGraceDelay,
		ErrorPolicy:    PolicyContinue,
	}
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file is not an error: the launcher runs with zero arguments,
// so the compiled-in defaults are returned instead.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills in defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.AppExecutable = strings.TrimSpace(cfg.AppExecutable)
	if cfg.AppExecutable == "" {
		return errAppExecutableRequired
	}

	if cfg.AppExecutable != filepath.Base(cfg.AppExecutable) {
		return fmt.Errorf("%w: %s", errAppExecutableNotBare, cfg.AppExecutable)
	}

	if cfg.GraceDelay < 0 {
		return errNegativeGraceDelay
	}

	if cfg.StagingDir == "" {
		cfg.StagingDir = DefaultStagingDir
	}

	if cfg.StagedDocument == "" {
		cfg.StagedDocument = DefaultStagedDocument
	}

	if cfg.TargetDocument == "" {
		cfg.TargetDocument = DefaultTargetDocument
	}

	switch cfg.ErrorPolicy {
	case PolicyContinue, PolicyFailFast:
	case "":
		cfg.ErrorPolicy = PolicyContinue
	default:
		return fmt.Errorf("%w: %s", errUnknownErrorPolicy, cfg.ErrorPolicy)
	}

	return nil
}

// StagedExecutablePath returns the staged executable path inside the staging directory.
func (c *Config) StagedExecutablePath() string {
	return filepath.Join(c.StagingDir, c.AppExecutable)
}

// StagedDocumentPath returns the staged document path inside the staging directory.
func (c *Config) StagedDocumentPath() string {
	return filepath.Join(c.StagingDir, c.StagedDocument)
}
