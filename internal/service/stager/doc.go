// Package stager prepares the update payload consumed by the updater.
//
// It copies a freshly built executable and document into the staging
// directory under their conventional names and writes a YAML manifest with
// SHA-512 checksums for release bookkeeping.
package stager
