// Package gate finds every source file that carries unit tests and runs
// them one by one, stopping at the first failure. It is meant as a
// pre-commit or CI check.
package gate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/unitframe/internal/compose"
	"github.com/hupe1980/unitframe/internal/project"
	"github.com/hupe1980/unitframe/internal/shell"
)

// DefaultMarker is the text a file must contain to take part in the gate.
const DefaultMarker = "-ut"

// Options configure one gate run.
type Options struct {
	// Root is the directory tree to search.
	Root string
	// Extensions are searched in order, without leading dot. Empty means
	// the Python and C++ extensions of Registry.
	Extensions []string
	// Marker must appear in a file for it to be run.
	Marker string
	// Registry maps extensions to languages.
	Registry *project.Registry
	// Composer builds the test steps of each file.
	Composer *compose.Composer
	// Runner executes the steps.
	Runner shell.Runner
	// Out receives the GATE status lines.
	Out io.Writer
	// Logger receives structured progress logs.
	Logger *slog.Logger
	// Clock is used to measure the elapsed time.
	Clock func() time.Time
}

// FileResult is the outcome of one tested file.
type FileResult struct {
	Path     string
	Language project.Language
	Passed   bool
	ExitCode int
	Duration time.Duration
}

// Report summarises a gate run.
type Report struct {
	RunID   uuid.UUID
	Root    string
	Results []FileResult
	Elapsed time.Duration
}

// Passed reports whether every tested file passed.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}

	return true
}

// Failed returns the first failing result, or nil.
func (r *Report) Failed() *FileResult {
	for i := range r.Results {
		if !r.Results[i].Passed {
			return &r.Results[i]
		}
	}

	return nil
}

// Discover walks root and returns the files with one of exts. Hidden
// directories are skipped. Files are ordered by the position of their
// extension in exts, then by path.
func Discover(root string, exts []string) ([]string, error) {
	byExt := make(map[string][]string, len(exts))

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}

			return nil
		}

		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if slices.Contains(exts, ext) {
			byExt[ext] = append(byExt[ext], path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", root, err)
	}

	var files []string

	seen := make(map[string]bool, len(exts))

	for _, ext := range exts {
		if seen[ext] {
			continue
		}

		seen[ext] = true
		found := byExt[ext]
		slices.Sort(found)
		files = append(files, found...)
	}

	return files, nil
}

// HasMarker reports whether the file at path contains marker.
func HasMarker(path, marker string) (bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from Discover
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	return bytes.Contains(data, []byte(marker)), nil
}

// GitRoot returns the top-level directory of the git work tree containing
// dir, or "." when dir is not inside one.
func GitRoot(ctx context.Context, dir string) string {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		return "."
	}

	root := strings.TrimSpace(string(out))
	if root == "" {
		return "."
	}

	return root
}

// Run discovers the marked files below opts.Root and runs their test steps.
// The first failing file ends the run. The returned report is complete for
// the files that were run; err is only set when discovery or a command
// start fails.
func Run(ctx context.Context, opts Options) (*Report, error) {
	opts = withDefaults(opts)

	if opts.Registry == nil || opts.Composer == nil || opts.Runner == nil {
		return nil, errors.New("gate: registry, composer and runner are required")
	}

	report := &Report{RunID: uuid.New(), Root: opts.Root}
	logger := opts.Logger.With(slog.String("run_id", report.RunID.String()))
	start := opts.Clock()

	defer func() {
		report.Elapsed = opts.Clock().Sub(start)
	}()

	files, err := Discover(opts.Root, opts.Extensions)
	if err != nil {
		return report, err
	}

	logger.Debug("discovered gate candidates", slog.Int("count", len(files)), slog.String("root", opts.Root))

	for _, path := range files {
		marked, err := HasMarker(path, opts.Marker)
		if err != nil {
			return report, err
		}

		if !marked {
			continue
		}

		spec, err := project.Resolve(opts.Registry, path, "")
		if err != nil {
			logger.Warn("skipping file of unknown type", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}

		_, _ = fmt.Fprintf(opts.Out, "\nGATE: Running Unit Tests for %s\n", path)

		res, err := runFile(ctx, opts, spec)
		report.Results = append(report.Results, res)

		if err != nil {
			return report, err
		}

		logger.Info("gate file finished",
			slog.String("path", path),
			slog.Bool("passed", res.Passed),
			slog.Int("exit_code", res.ExitCode),
			slog.Duration("duration", res.Duration),
		)

		if !res.Passed {
			break
		}
	}

	return report, nil
}

// PrintSummary writes the elapsed time and the final verdict.
func PrintSummary(w io.Writer, r *Report) {
	_, _ = fmt.Fprintf(w, "\nGATE: Elapsed Time %.3fs\n", r.Elapsed.Seconds())

	if r.Passed() {
		_, _ = fmt.Fprintln(w, "GATE: ALL TESTS PASSED!")
		return
	}

	_, _ = fmt.Fprintln(w, "GATE: FAILED!")
}

func runFile(ctx context.Context, opts Options, spec project.Spec) (FileResult, error) {
	res := FileResult{Path: spec.Path, Language: spec.Language, Passed: true}
	start := opts.Clock()

	for _, step := range opts.Composer.TestSteps(spec) {
		code, err := opts.Runner.Run(ctx, step.Text)
		if err != nil {
			res.Passed = false
			res.ExitCode = code
			res.Duration = opts.Clock().Sub(start)

			return res, err
		}

		if code != 0 {
			res.Passed = false
			res.ExitCode = code

			break
		}
	}

	res.Duration = opts.Clock().Sub(start)

	return res, nil
}

func withDefaults(opts Options) Options {
	if opts.Root == "" {
		opts.Root = "."
	}

	if len(opts.Extensions) == 0 && opts.Registry != nil {
		opts.Extensions = opts.Registry.Extensions(project.LanguagePython, project.LanguageCpp)
	}

	if opts.Marker == "" {
		opts.Marker = DefaultMarker
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return opts
}
