package stage

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Command is an external command line. Args are passed verbatim, never through a shell.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory of the command; empty means the current one.
	Dir string
}

// Argv returns the command line as a slice.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Result is the outcome of a command that ran to completion.
type Result struct {
	ExitCode int
	// Output is the combined stdout and stderr.
	Output []byte
}

// Runner executes external commands. It returns an error only when the command could not
// be run at all; a non-zero exit is reported through Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// OSRunner implements Runner using the os/exec package.
type OSRunner struct {
	logger hclog.Logger
}

// NewOSRunner creates a runner logging every command at debug level.
// A nil logger discards logs.
func NewOSRunner(logger hclog.Logger) *OSRunner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &OSRunner{logger: logger}
}

// Run executes cmd with exec.CommandContext and returns its combined output.
func (r *OSRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	r.logger.Debug("running command", "cmd", cmd.String(), "dir", cmd.Dir)
	out, err := c.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			r.logger.Debug("command failed", "cmd", cmd.Name, "code", exitErr.ExitCode())
			return Result{ExitCode: exitErr.ExitCode(), Output: out}, nil
		}
		if ctx.Err() != nil {
			return Result{Output: out}, ctx.Err()
		}
		return Result{Output: out}, err
	}
	return Result{Output: out}, nil
}

// run executes cmd and turns a non-zero exit into a *CommandError.
func run(ctx context.Context, r Runner, cmd Command) ([]byte, error) {
	res, err := r.Run(ctx, cmd)
	if err != nil {
		return res.Output, &CommandError{Command: cmd.Argv(), Dir: cmd.Dir, ExitCode: -1, Output: res.Output, Err: err}
	}
	if res.ExitCode != 0 {
		return res.Output, &CommandError{Command: cmd.Argv(), Dir: cmd.Dir, ExitCode: res.ExitCode, Output: res.Output}
	}
	return res.Output, nil
}
