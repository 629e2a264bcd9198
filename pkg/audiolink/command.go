package audiolink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// CommandResult holds what an external tool produced
type CommandResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success reports whether the tool exited with status 0
func (r *CommandResult) Success() bool {
	return r.ExitCode == 0
}

// CommandRunner invokes external tools. A non-nil error means the tool could not
// be run at all; a tool that ran and failed is reported through ExitCode.
type CommandRunner interface {
	Run(name string, args ...string) (*CommandResult, error)
}

type execRunner struct {
	logger  *zap.SugaredLogger
	timeout time.Duration
}

func newExecRunner(logger *zap.SugaredLogger, timeout time.Duration) *execRunner {
	return &execRunner{
		logger:  logger.Named("exec"),
		timeout: timeout,
	}
}

func (r *execRunner) Run(name string, args ...string) (*CommandResult, error) {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &CommandResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			result.ExitCode = exitErr.ExitCode()
			r.logger.Debugw("Command exited with non-zero status",
				"command", name, "args", args, "exitCode", result.ExitCode)

			return result, nil
		}

		r.logger.Debugw("Failed to run command", "command", name, "args", args, "error", err)
		return nil, fmt.Errorf("run %s: %w", name, err)
	}

	return result, nil
}
