package cli

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/unitframe/internal/compose"
	"github.com/hupe1980/unitframe/internal/config"
	"github.com/hupe1980/unitframe/internal/gate"
	"github.com/hupe1980/unitframe/internal/logging"
)

type gateOptions struct {
	configFile string
	extensions []string
	marker     string
}

// gitRoot is replaced in tests.
var gitRoot = gate.GitRoot

// ExecuteGate builds the gate command tree, runs it with the process
// arguments, and returns the exit code.
func ExecuteGate() int {
	cmd := NewGateCommand()
	cmd.SetArgs(os.Args[1:])

	return exitCode(cmd.Execute(), cmd.ErrOrStderr())
}

// NewGateCommand constructs the gate command.
func NewGateCommand() *cobra.Command {
	opts := &gateOptions{}

	cmd := &cobra.Command{
		Use:   "gate [flags] [path]",
		Short: "Run the unit tests of every marked source file",
		Long: `gate searches path (default: the top of the current git work tree) for
source files that carry the unit test marker and runs their tests one by
one. The first failing file stops the run.

Exit status is 0 when every test passed and 1 otherwise.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd, opts.configFile, "gate")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			root := ""
			if len(args) == 1 {
				root = args[0]
			}

			return runGate(cmd.Context(), cmd, root, opts)
		},
	}

	registerGlobalFlags(cmd, &opts.configFile)

	f := cmd.Flags()
	f.StringSliceVar(&opts.extensions, "ext", nil, "file extensions to search, in order (default: the Python and C++ extensions of the type table)")
	f.StringVar(&opts.marker, "marker", gate.DefaultMarker, "text a file must contain to be tested")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	cmd.AddCommand(
		newVersionCommand("gate"),
		newCompletionCommand("gate"),
	)

	return cmd
}

func runGate(ctx context.Context, cmd *cobra.Command, root string, opts *gateOptions) error {
	cfg := config.FromContext(ctx)
	logger := logging.Component(ctx, "gate")

	if root == "" {
		root = gitRoot(ctx, ".")
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	exts := make([]string, 0, len(opts.extensions))
	for _, ext := range opts.extensions {
		if ext = strings.TrimPrefix(strings.TrimSpace(ext), "."); ext != "" {
			exts = append(exts, ext)
		}
	}

	plat := currentPlatform(platformOptions(cfg))

	report, err := gate.Run(ctx, gate.Options{
		Root:       root,
		Extensions: exts,
		Marker:     opts.marker,
		Registry:   reg,
		Composer:   compose.New(plat, composeSettings(cfg, "")),
		Runner:     newRunner(plat, cmd, logger),
		Out:        cmd.OutOrStdout(),
		Logger:     logger,
	})
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	gate.PrintSummary(cmd.OutOrStdout(), report)

	logger.Debug("gate finished",
		slog.String("runID", report.RunID.String()),
		slog.Int("files", len(report.Results)),
		slog.Bool("passed", report.Passed()),
	)

	if !report.Passed() {
		logger.Debug("gate failed", slog.String("path", report.Failed().Path))

		return &ExitError{Code: 1}
	}

	return nil
}
