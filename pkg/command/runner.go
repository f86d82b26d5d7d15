// Package command runs external processes and captures their output.
//
// All process execution in the bridge goes through the Runner interface so
// that callers can be tested without spawning real processes.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Result holds the output of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes one external process per call and waits for it to exit.
//
// Implementations must be safe for concurrent use.
type Runner interface {
	// Run starts name with args, waits for it to finish, and returns its
	// captured output. A non-zero exit status is not an error: it is
	// reported through Result.ExitCode and judged by the caller. Run
	// returns an error only when the process could not run at all, or the
	// context was cancelled while it ran.
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// LaunchError reports a process that never produced a usable exit: the
// executable could not be started, or the run was cancelled.
type LaunchError struct {
	Path string
	Args []string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to run '%s': %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

type execRunner struct{}

var _ Runner = &execRunner{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return &execRunner{}
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		// CommandContext kills the process on cancellation; report that as
		// a launch failure rather than a normal exit.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &LaunchError{Path: name, Args: args, Err: ctxErr}
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}

		return nil, &LaunchError{Path: name, Args: args, Err: err}
	}

	return result, nil
}
