// Package launcher starts a program only when no update is in progress.
//
// It polls for the updater's marker file, reclaims stale markers left by a
// crashed update, and then runs the given program. A desktop shortcut can
// point here and stay safe to use while an update is being applied.
package launcher
