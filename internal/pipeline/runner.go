package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mark3labs/idiomatic/internal/emitter"
)

// ErrorCode categorizes pipeline failures.
type ErrorCode string

const PostBuildCommandError ErrorCode = "PostBuildCommandError"

// CommandError reports a post-build step that could not start or exited
// non-zero. ExitCode is -1 when the process never ran.
type CommandError struct {
	Code     ErrorCode
	Command  string
	Args     []string
	ExitCode int
	Output   string
	Cause    error
}

func (e *CommandError) Error() string {
	line := strings.TrimSpace(e.Command + " " + strings.Join(e.Args, " "))
	if e.ExitCode < 0 {
		return fmt.Sprintf("post-build %q failed to start: %v", line, e.Cause)
	}
	return fmt.Sprintf("post-build %q exited with code %d", line, e.ExitCode)
}

func (e *CommandError) Unwrap() error { return e.Cause }

// CommandResult is the outcome of one external command.
type CommandResult struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// CommandRunner runs one post-build command in dir. A non-zero exit is
// reported through CommandResult, not through the error; the error is
// reserved for commands that could not be started.
type CommandRunner interface {
	Run(ctx context.Context, dir string, cmd emitter.Command) (*CommandResult, error)
}

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, c emitter.Command) (*CommandResult, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = dir

	var out strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	res := &CommandResult{Output: out.String(), Duration: time.Since(start)}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		res.ExitCode = -1
		return res, err
	}
}
