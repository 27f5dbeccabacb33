package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/unitframe/internal/compose"
	"github.com/hupe1980/unitframe/internal/config"
	"github.com/hupe1980/unitframe/internal/logging"
	"github.com/hupe1980/unitframe/internal/platform"
	"github.com/hupe1980/unitframe/internal/project"
	"github.com/hupe1980/unitframe/internal/scaffold"
	"github.com/hupe1980/unitframe/internal/shell"
	"github.com/hupe1980/unitframe/internal/tracker"
	"github.com/hupe1980/unitframe/internal/watch"
)

// Seams replaced in tests.
var (
	newRunner = func(p platform.Platform, cmd *cobra.Command, logger *slog.Logger) runner {
		return shell.New(p,
			shell.WithInput(cmd.InOrStdin()),
			shell.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
			shell.WithLogger(logger),
		)
	}
	currentPlatform = platform.Current
	selfExecutable  = func() string {
		if exe, err := os.Executable(); err == nil {
			return exe
		}

		return os.Args[0]
	}
)

// runner runs composed commands and clears the screen between runs.
type runner interface {
	shell.Runner
	watch.Clearer
}

// runProject resolves the project, creates it from its template when needed
// and runs it once, opens it for editing, or watches it.
func runProject(ctx context.Context, cmd *cobra.Command, path string, opts *runOptions) error {
	cfg := config.FromContext(ctx)
	logger := logging.Component(ctx, "run")

	reg, err := loadRegistry(cfg)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	spec, err := project.Resolve(reg, path, opts.typeKey)
	if err != nil {
		if errors.Is(err, project.ErrUnsupportedType) || errors.Is(err, project.ErrMalformedContestPrefix) {
			return &ExitError{Code: 2, Err: err}
		}

		return err
	}

	logger.Debug("project resolved",
		slog.String("path", spec.Path),
		slog.String("type", spec.TypeKey),
		slog.String("language", spec.Language.String()),
	)

	if err := ensureProject(cmd, spec, cfg, opts.newFile && !opts.watch, logger); err != nil {
		return err
	}

	plat := currentPlatform(platformOptions(cfg))
	composer := compose.New(plat, composeSettings(cfg, selfCommand(plat, spec, opts)))
	sh := newRunner(plat, cmd, logger)

	if opts.watch {
		return watchProject(ctx, cmd, spec, cfg, composer, sh, opts, logger)
	}

	command := composer.Compose(spec, compose.ModeEdit, opts.args, opts.pre)

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "PROJ : ", spec.Path)

	code, err := sh.Run(ctx, command.Text)
	if err != nil {
		return err
	}

	if code != 0 {
		return &ExitError{Code: code}
	}

	return nil
}

// watchProject polls the project until the process is interrupted.
func watchProject(
	ctx context.Context,
	cmd *cobra.Command,
	spec project.Spec,
	cfg *config.Config,
	composer *compose.Composer,
	sh runner,
	opts *runOptions,
	logger *slog.Logger,
) error {
	policy, err := tracker.ParseMissingPolicy(cfg.MissingFiles)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop, err := watch.New(watch.Options{
		Paths:    []string{spec.Path},
		Label:    spec.Path,
		Command:  composer.Compose(spec, compose.ModeWatch, opts.args, opts.pre).Text,
		Interval: cfg.PollInterval,
		Checker:  tracker.New(tracker.WithMissingPolicy(policy)),
		Runner:   sh,
		Clearer:  sh,
		Logger:   logger,
		Out:      cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	logger.Info("watching project",
		slog.String("path", spec.Path),
		slog.Duration("interval", cfg.PollInterval),
		slog.String("missingFiles", policy.String()),
	)

	return loop.Run(ctx)
}

// ensureProject creates the project file from its template when it does not
// exist, or re-creates it when force is set.
func ensureProject(cmd *cobra.Command, spec project.Spec, cfg *config.Config, force bool, logger *slog.Logger) error {
	_, err := os.Stat(spec.Path)

	switch {
	case err == nil && !force:
		return nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("checking project %s: %w", spec.Path, err)
	}

	if err != nil {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Can't find project %s\nCreated a NEW one!\n", spec.Path)
	}

	s := scaffold.New(scaffold.Templates(cfg.TemplatesDir),
		scaffold.WithOutput(cmd.OutOrStdout()),
		scaffold.WithLogger(logger),
	)

	if _, err := s.Create(spec, force); err != nil {
		return fmt.Errorf("creating project %s: %w", spec.Path, err)
	}

	return nil
}

// loadRegistry returns the configured project type table.
func loadRegistry(cfg *config.Config) (*project.Registry, error) {
	if cfg.TypesFile != "" {
		return project.LoadRegistry(cfg.TypesFile)
	}

	return project.DefaultRegistry()
}

func platformOptions(cfg *config.Config) platform.Options {
	opts := platform.DefaultOptions()
	opts.TerminalOptions = cfg.TerminalOptions

	return opts
}

func composeSettings(cfg *config.Config, self string) compose.Settings {
	s := compose.DefaultSettings()
	s.Compiler = cfg.Compiler
	s.Standard = cfg.CppStandard
	s.LintCommand = cfg.LintCommand
	s.Python = cfg.Python
	s.ScratchDir = cfg.EffectiveScratchDir()
	s.SelfCommand = self

	return s
}

// selfCommand re-invokes this binary for spec with the original project
// flags. --new is dropped so the watcher never re-creates the file.
func selfCommand(p platform.Platform, spec project.Spec, opts *runOptions) string {
	parts := []string{p.Quote(selfExecutable()), p.Quote(spec.Path), "--type", spec.TypeKey}

	if opts.configFile != "" {
		parts = append(parts, "--config", p.Quote(opts.configFile))
	}

	if opts.pre != "" {
		parts = append(parts, "--pre", p.Quote(opts.pre))
	}

	if opts.args != "" {
		parts = append(parts, "--args", p.Quote(opts.args))
	}

	return strings.Join(parts, " ")
}
