package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ps2jpmod/launcher/internal/config"
	"github.com/ps2jpmod/launcher/internal/service/stager"
	"github.com/ps2jpmod/launcher/internal/service/updater"
)

// TestStageThenUpdate runs the full pipeline against a real filesystem:
// mod-stager places the payload, mod-updater applies it. The relaunch of a
// non-executable dummy fails and is skipped over by the default policy.
func TestStageThenUpdate(t *testing.T) {
	testChdir(t, t.TempDir())

	payloadDir := t.TempDir()
	exePath := filepath.Join(payloadDir, "PS2JPMod-new.exe")
	docPath := filepath.Join(payloadDir, "default-new.txt")

	exeBody := []byte("release executable bytes")
	docBody := []byte("release document bytes")
	require.NoError(t, os.WriteFile(exePath, exeBody, 0o755))
	require.NoError(t, os.WriteFile(docPath, docBody, 0o644))

	stagerOptions := &stager.Options{
		ExecutablePath: exePath,
		DocumentPath:   docPath,
	}

	require.NoError(t, stager.Run(context.Background(), stagerOptions))

	cfg := config.Default()

	// Stale targets from the previous release.
	require.NoError(t, os.WriteFile(cfg.AppExecutable, []byte("previous executable"), 0o755))
	require.NoError(t, os.WriteFile(cfg.TargetDocument, []byte("previous document"), 0o644))

	updaterOptions := &updater.Options{
		GraceDelay: 0,
	}

	require.NoError(t, updater.Run(context.Background(), updaterOptions))

	// Targets carry the staged bytes.
	exe, err := os.ReadFile(cfg.AppExecutable)
	require.NoError(t, err)
	require.Equal(t, exeBody, exe)

	doc, err := os.ReadFile(cfg.TargetDocument)
	require.NoError(t, err)
	require.Equal(t, docBody, doc)

	// The staged payload is gone; the manifest is bookkeeping and stays.
	_, err = os.Stat(cfg.StagedExecutablePath())
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(cfg.StagedDocumentPath())
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(cfg.StagingDir, stager.ManifestFilename))
	require.NoError(t, err)

	// The running marker was cleaned up.
	_, err = os.Stat(updater.MarkerFilename)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestUpdater_RefusesConcurrentRun verifies a fresh marker from another
// updater instance aborts the run before any preparation.
func TestUpdater_RefusesConcurrentRun(t *testing.T) {
	testChdir(t, t.TempDir())

	require.NoError(t, os.WriteFile(updater.MarkerFilename, nil, 0o644))

	err := updater.Run(context.Background(), &updater.Options{GraceDelay: 0})
	require.ErrorContains(t, err, "already running")
}

// TestUpdater_HonorsConfigFile verifies a settings file redirects the whole layout.
func TestUpdater_HonorsConfigFile(t *testing.T) {
	testChdir(t, t.TempDir())

	cfg := &config.Config{
		AppExecutable:  "OtherApp.exe",
		StagingDir:     "incoming",
		StagedDocument: "notes.txt",
		TargetDocument: "NOTES.txt",
		GraceDelay:     0,
		ErrorPolicy:    config.PolicyContinue,
	}

	cfgPath := filepath.Join(".", "settings.yaml")
	require.NoError(t, config.Save(cfgPath, cfg))

	require.NoError(t, os.MkdirAll(cfg.StagingDir, 0o755))
	require.NoError(t, os.WriteFile(cfg.StagedExecutablePath(), []byte("exe"), 0o755))
	require.NoError(t, os.WriteFile(cfg.StagedDocumentPath(), []byte("doc"), 0o644))

	updaterOptions := &updater.Options{
		ConfigPath: cfgPath,
		GraceDelay: 0,
	}

	require.NoError(t, updater.Run(context.Background(), updaterOptions))

	exe, err := os.ReadFile("OtherApp.exe")
	require.NoError(t, err)
	require.Equal(t, []byte("exe"), exe)

	doc, err := os.ReadFile("NOTES.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("doc"), doc)
}
