package updater

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/mitchellh/go-ps"

	"github.com/ps2jpmod/launcher/internal/logger"
)

const (
	// MarkerFilename marks that the updater is running right now to avoid parallel execution.
	MarkerFilename = "mod-launcher-update-marker.bin"

	// DefaultFileMode is applied to replaced target files.
	DefaultFileMode os.FileMode = 0o755

	// MarkerLifetime is the period after which a stale update marker is ignored.
	MarkerLifetime = 30 * time.Second

	// baseUpdaterExecutable is this binary's own image name, used for stale marker recovery.
	baseUpdaterExecutable = "mod-updater"
)

var errUnsupportedOS = errors.New("os not supported")

// processLister abstracts the OS process table so the liveness
// check can be exercised against a fabricated process list.
type processLister interface {
	Processes() ([]ps.Process, error)
}

// systemProcesses lists processes through go-ps.
type systemProcesses struct{}

func (systemProcesses) Processes() ([]ps.Process, error) {
	return ps.Processes()
}

// isImageRunning reports whether a process with the given image name exists,
// comparing names case-insensitively and skipping selfPID.
func isImageRunning(lister processLister, imageName string, selfPID int) (bool, error) {
	processList, err := lister.Processes()
	if err != nil {
		return false, err
	}

	for _, process := range processList {
		if process.Pid() == selfPID {
			continue
		}

		if strings.EqualFold(process.Executable(), imageName) {
			return true, nil
		}
	}

	return false, nil
}

// IsUpdaterRunningNow checks presence of a marker file and attempts recovery if it looks stale.
func IsUpdaterRunningNow(ctx context.Context) bool {
	logger.Debug(ctx, "Checking for the presence of an update marker")

	fileInfo, err := os.Stat(MarkerFilename)
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= MarkerLifetime {
			return true
		}

		logger.Info(ctx, "The update marker is too old, attempting cleanup")

		if err = terminateProcessByName(updaterExecutable()); err != nil {
			return true
		}

		if err = os.Remove(MarkerFilename); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		logger.Debug(ctx, "Update marker not found, continuing")
		return false
	}

	logger.Infof(ctx, "Unable to read update marker: %v", err)

	return false
}

// terminateProcessByName tries to kill processes with the provided executable name.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}

// replaceFile overwrites targetPath with the contents of sourcePath.
// The swap goes through go-update so a half-written file never sits at the
// target path; leftover ".old" artifacts are removed best-effort.
func replaceFile(sourcePath, targetPath string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}

	if _, err = os.Stat(targetPath); err != nil && os.IsNotExist(err) {
		if _, err = os.Create(targetPath); err != nil {
			return err
		}
	}

	// No checksum: payload verification is out of scope for this tool.
	options := goupdate.Options{
		TargetPath: targetPath,
		TargetMode: DefaultFileMode,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return err
	}

	oldFileName := targetPath + ".old"
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return nil
}

// startDetached launches the executable as an independent process that is not awaited.
func startDetached(executablePath string) error {
	osLC := strings.ToLower(runtime.GOOS)
	switch {
	case strings.Contains(osLC, "linux") || strings.Contains(osLC, "darwin"):
		return exec.Command(executablePath).Start()
	case strings.Contains(osLC, "windows"):
		return exec.Command("cmd.exe", "/C", "start", executablePath).Start()
	default:
		return errUnsupportedOS
	}
}

// getExecutableExtension returns ".exe" on Windows and "" elsewhere.
func getExecutableExtension() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return ".exe"
	}

	return ""
}

func updaterExecutable() string {
	return baseUpdaterExecutable + getExecutableExtension()
}
