// Package process runs external tools (the duration probe and the archive
// packer) behind a narrow synchronous interface.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Result is the outcome of a finished process
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// CombinedOutput returns stdout followed by stderr
func (r Result) CombinedOutput() string {
	if r.Stdout == "" {
		return r.Stderr
	}
	if r.Stderr == "" {
		return r.Stdout
	}
	return r.Stdout + "\n" + r.Stderr
}

// Success reports whether the process exited with code 0
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes an external program and captures its output.
// A non-zero exit is reported through Result, not as an error; errors are
// reserved for processes that could not be started or were cancelled.
type Runner interface {
	Run(ctx context.Context, exe string, args ...string) (Result, error)
}

// RunnerFunc adapts a function to the Runner interface
type RunnerFunc func(ctx context.Context, exe string, args ...string) (Result, error)

// Run calls f
func (f RunnerFunc) Run(ctx context.Context, exe string, args ...string) (Result, error) {
	return f(ctx, exe, args...)
}

// ExecRunner runs programs with os/exec
type ExecRunner struct {
	// Dir is the working directory, empty for the current one
	Dir string
}

// NewExecRunner creates a runner using the current working directory
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts exe with args and waits for it to exit
func (r *ExecRunner) Run(ctx context.Context, exe string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("failed to run %s: %w", exe, err)
	}

	return result, nil
}
