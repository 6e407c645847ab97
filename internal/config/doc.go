// Package config defines the update layout used by the launcher binaries and
// provides helpers to load, validate and save it in YAML format.
//
// The Config type names the application executable, the staging directory and
// the document files, plus the grace delay and the error policy of the
// updater. All fields default to the compiled-in layout of the original tool,
// so the binaries run without any configuration file present.
package config
