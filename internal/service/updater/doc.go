// Package updater performs the replace-and-relaunch cycle for the application.
//
// After a grace delay it checks the OS process list for the application image
// name; while the old process is alive no target file is touched. Once clear,
// it overwrites the live executable and the localized document from the
// staged payload, deletes the staged files, and starts the new executable as
// a detached process.
package updater
