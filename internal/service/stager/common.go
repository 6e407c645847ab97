package stager

import (
	"crypto"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// ManifestFilename is the staging manifest written next to the payload.
	ManifestFilename = "mod-update-manifest.yaml"

	// ChecksumFunction is used to fingerprint staged files.
	ChecksumFunction crypto.Hash = crypto.SHA512

	// defaultMapCapacity is the default initial capacity for maps.
	defaultMapCapacity = 4
)

var (
	errHashUnavailable = errors.New("hash function unavailable")
	errEmptySourcePath = errors.New("payload source path is empty")
)

// Manifest records what a staged payload contains.
// The updater does not read it; it exists so a release can be audited.
type Manifest struct {
	// VersionNumber is the release version the payload was staged from.
	VersionNumber string `yaml:"version"`
	// Files maps staged file names to their base64-encoded checksums.
	Files map[string]string `yaml:"files"`
}

// FileChecksum returns checksum bytes for a file using ChecksumFunction.
func FileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	if !ChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := ChecksumFunction.New()
	if _, err = hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}
