// Package cli implements the cobra command trees for unitframe and gate.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/unitframe/internal/config"
	"github.com/hupe1980/unitframe/internal/logging"
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the unitframe command tree, runs it with the process
// arguments, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()
	cmd.SetArgs(NormalizeLegacyArgs(os.Args[1:]))

	return exitCode(cmd.Execute(), cmd.ErrOrStderr())
}

// exitCode maps the error returned by a command tree to a process exit code
// and reports it on w.
func exitCode(err error, w io.Writer) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			_, _ = fmt.Fprintln(w, "Error:", exitErr.Err)
		}

		return exitErr.Code
	}

	_, _ = fmt.Fprintln(w, "Error:", err)

	return 1
}

// NewRootCommand constructs the unitframe command with its subcommands.
func NewRootCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "unitframe [flags] <project>",
		Short: "Edit a project and re-run its unit tests on every save",
		Long: `unitframe opens a project file in your editor and, next to it, a
watcher that lints, builds and runs the project's unit tests every time the
file is saved.

A project that does not exist yet is created from a template. The project
type is picked with --type or from the file extension; run "unitframe types"
to list the known types.

With --watch the watcher runs in the current terminal instead.`,
		Example: `  unitframe foo.py
  unitframe -t cc bar
  unitframe -t cf 552A_sum
  unitframe foo.py --watch --pre "time -p" --args "input.txt"`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd, opts.configFile, "unitframe")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}

			return runProject(cmd.Context(), cmd, args[0], opts)
		},
	}

	registerGlobalFlags(cmd, &opts.configFile)
	registerProjectFlags(cmd, opts)

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	cmd.AddCommand(
		newTypesCommand(),
		newVersionCommand("unitframe"),
		newCompletionCommand("unitframe"),
	)

	return cmd
}

// setup loads the configuration, installs the logger and stores both in the
// command's context.
func setup(cmd *cobra.Command, configFile, tool string) error {
	cfg, err := config.Load(cmd, configFile)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	logger := logging.SetupWithWriter(cfg, tool, cmd.ErrOrStderr())

	ctx := cmd.Context()
	ctx = config.NewContext(ctx, cfg)
	ctx = logging.NewContext(ctx, logger)
	cmd.SetContext(ctx)

	logger.Debug("configuration loaded",
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("configFile", cfg.ConfigFile),
	)

	return nil
}
