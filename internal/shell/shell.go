// Package shell runs composed command lines through the platform shell.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/hupe1980/unitframe/internal/platform"
)

// Runner executes one command line and reports its exit code.
type Runner interface {
	Run(ctx context.Context, command string) (int, error)
}

// Executor runs commands through the shell of a platform with the given
// standard streams.
type Executor struct {
	platform platform.Platform
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	dir      string
	logger   *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithOutput sets the writers for the child's stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(e *Executor) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithInput sets the child's stdin.
func WithInput(stdin io.Reader) Option {
	return func(e *Executor) {
		e.stdin = stdin
	}
}

// WithDir sets the working directory of the child.
func WithDir(dir string) Option {
	return func(e *Executor) {
		e.dir = dir
	}
}

// WithLogger sets a logger for the Executor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// New creates an Executor inheriting the process's standard streams.
func New(p platform.Platform, opts ...Option) *Executor {
	e := &Executor{
		platform: p,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run executes command and waits for it. A non-zero exit status is returned
// as the exit code with a nil error; the error is only set when the shell
// could not be started or was interrupted.
func (e *Executor) Run(ctx context.Context, command string) (int, error) {
	name, args := e.platform.Shell()

	cmd := exec.CommandContext(ctx, name, append(args, command)...) //nolint:gosec // running user commands is the point
	cmd.Stdin = e.stdin
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	cmd.Dir = e.dir

	e.logger.Debug("running command", slog.String("command", command))

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return exitErr.ExitCode(), nil
	}

	return -1, fmt.Errorf("running %q: %w", command, err)
}

// Clear clears the terminal. Failures are ignored; a missing clear command
// must never stop the caller.
func (e *Executor) Clear(ctx context.Context) {
	if _, err := e.Run(ctx, e.platform.ClearScreenCommand()); err != nil {
		e.logger.Debug("clearing screen failed", slog.String("error", err.Error()))
	}
}
