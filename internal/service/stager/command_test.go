package stager

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ps2jpmod/launcher/internal/config"
	"github.com/ps2jpmod/launcher/internal/service/updater"
)

// TestRun_StagesPayloadAndManifest verifies payload copies, conventional
// naming and manifest checksums.
func TestRun_StagesPayloadAndManifest(t *testing.T) {
	testChdir(t, t.TempDir())

	payloadDir := t.TempDir()
	exePath := filepath.Join(payloadDir, "build-output.exe")
	docPath := filepath.Join(payloadDir, "readme-draft.txt")

	exeBody := []byte("built executable")
	docBody := []byte("updated document")
	require.NoError(t, os.WriteFile(exePath, exeBody, 0o755))
	require.NoError(t, os.WriteFile(docPath, docBody, 0o644))

	opts := &Options{
		ExecutablePath: exePath,
		DocumentPath:   docPath,
	}

	require.NoError(t, Run(context.Background(), opts))

	cfg := config.Default()

	stagedExe, err := os.ReadFile(cfg.StagedExecutablePath())
	require.NoError(t, err)
	require.Equal(t, exeBody, stagedExe)

	stagedDoc, err := os.ReadFile(cfg.StagedDocumentPath())
	require.NoError(t, err)
	require.Equal(t, docBody, stagedDoc)

	contents, err := os.ReadFile(filepath.Join(cfg.StagingDir, ManifestFilename))
	require.NoError(t, err)

	var manifest Manifest
	require.NoError(t, yaml.Unmarshal(contents, &manifest))
	require.NotEmpty(t, manifest.VersionNumber)

	exeSum := sha512.Sum512(exeBody)
	docSum := sha512.Sum512(docBody)
	require.Equal(t, base64.StdEncoding.EncodeToString(exeSum[:]), manifest.Files[cfg.AppExecutable])
	require.Equal(t, base64.StdEncoding.EncodeToString(docSum[:]), manifest.Files[cfg.StagedDocument])
}

// TestRun_MissingPayload verifies a nonexistent payload file fails the staging run.
func TestRun_MissingPayload(t *testing.T) {
	testChdir(t, t.TempDir())

	opts := &Options{
		ExecutablePath: filepath.Join(t.TempDir(), "absent.exe"),
		DocumentPath:   filepath.Join(t.TempDir(), "absent.txt"),
	}

	require.Error(t, Run(context.Background(), opts))
}

// TestRun_BlockedByUpdateMarker verifies staging refuses to race a running update.
func TestRun_BlockedByUpdateMarker(t *testing.T) {
	testChdir(t, t.TempDir())

	require.NoError(t, os.WriteFile(updater.MarkerFilename, nil, 0o644))

	err := Run(context.Background(), &Options{})
	require.ErrorIs(t, err, errUpdaterRunning)
}

// TestFileChecksum verifies the checksum helper against a direct SHA-512.
func TestFileChecksum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "file.bin")
	body := []byte("checksum me")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	got, err := FileChecksum(path)
	require.NoError(t, err)

	want := sha512.Sum512(body)
	require.Equal(t, want[:], got)
}
