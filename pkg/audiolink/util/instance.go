package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// CreateMutex makes sure only one instance named name runs per user. It leaves
// a pid file behind which the next instance checks for a live process.
func CreateMutex(name string) (string, error) {
	lockFile := filepath.Join(lockDirectory(), name+".lock")
	currentPid := os.Getpid()

	lockContent, err := os.ReadFile(lockFile)
	if err == nil {
		content := strings.TrimSpace(string(lockContent))

		if len(content) > 0 && content != strconv.Itoa(currentPid) {
			lockProcessId, _ := strconv.Atoi(content)
			process, err := os.FindProcess(lockProcessId)
			if lockProcessId > 0 && err == nil {
				if pSignal := process.Signal(syscall.Signal(0)); pSignal == nil {
					return "", fmt.Errorf("another instance of %s is running (pid %d)", name, lockProcessId)
				}
			}
		}
	}

	if err := os.WriteFile(lockFile, []byte(strconv.Itoa(currentPid)), 0644); err != nil {
		return "", fmt.Errorf("cannot instantiate mutex: %w", err)
	}

	return lockFile, nil
}

// ReleaseMutex removes a lock file created by CreateMutex
func ReleaseMutex(lockFile string) error {
	if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release mutex: %w", err)
	}

	return nil
}

func lockDirectory() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}

	return os.TempDir()
}
