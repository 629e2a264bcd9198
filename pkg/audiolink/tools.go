package audiolink

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/mitchellh/go-ps"
)

const graphServerProcessName = "pipewire"

// ToolUnavailableError lists required executables that could not be found
type ToolUnavailableError struct {
	Missing []string
}

func (e *ToolUnavailableError) Error() string {
	return fmt.Sprintf("required PipeWire utilities not found: %s", strings.Join(e.Missing, ", "))
}

type lookPathFunc func(file string) (string, error)

// probeTools checks that every tool resolves, reporting all missing ones at once
func probeTools(lookPath lookPathFunc, tools ...string) error {
	missing := []string{}

	for _, tool := range tools {
		if _, err := lookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}

	if len(missing) > 0 {
		return &ToolUnavailableError{Missing: missing}
	}

	return nil
}

func probeConfiguredTools(tools ToolsConfig) error {
	return probeTools(exec.LookPath, tools.Dump, tools.Link, tools.CLI)
}

type processListFunc func() ([]ps.Process, error)

// graphServerRunning looks for a running PipeWire daemon
func graphServerRunning(processes processListFunc) (bool, error) {
	list, err := processes()
	if err != nil {
		return false, fmt.Errorf("list processes: %w", err)
	}

	for _, process := range list {
		if process.Executable() == graphServerProcessName {
			return true, nil
		}
	}

	return false, nil
}
