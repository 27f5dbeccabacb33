// Package compose builds the shell command lines unitframe runs for a
// project: opening the editor, linting, compiling and running the tests.
// Composition is pure string construction; nothing is executed here.
package compose

import (
	"path/filepath"
	"strings"

	"github.com/hupe1980/unitframe/internal/platform"
	"github.com/hupe1980/unitframe/internal/project"
)

// Mode selects what the composed command does.
type Mode int

const (
	// ModeEdit opens the editor and schedules watch mode next to it.
	ModeEdit Mode = iota
	// ModeWatch lints, builds and runs the project's tests once.
	ModeWatch
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeWatch {
		return "watch"
	}

	return "edit"
}

// DiagnosticFlags are always passed to the C++ compiler in watch mode.
var DiagnosticFlags = []string{
	"-Wall", "-Wextra", "-pedantic", "-O2", "-Wshadow", "-Wformat=2",
	"-Wfloat-equal", "-Wconversion", "-Wlogical-op", "-Wcast-qual", "-Wcast-align",
	"-D_GLIBCXX_DEBUG_PEDANTIC", "-D_FORTIFY_SOURCE=2",
}

// WatchFlag is appended to the self command to enter watch mode.
const WatchFlag = "--watch"

// Settings are the tool-level inputs of composition.
type Settings struct {
	// Compiler is the C++ compiler executable.
	Compiler string
	// Standard is the language standard flag, e.g. "-std=c++11".
	Standard string
	// LintCommand checks python sources before the tests run.
	LintCommand string
	// Python starts scripts where the platform cannot run them directly.
	Python string
	// ScratchDir receives compiled binaries.
	ScratchDir string
	// TestFlag asks a project to run its own unit tests.
	TestFlag string
	// SelfCommand re-invokes the tool with the original arguments.
	SelfCommand string
}

// DefaultSettings returns the settings the tool ships with.
func DefaultSettings() Settings {
	return Settings{
		Compiler:    "g++",
		Standard:    "-std=c++11",
		LintCommand: "pycodestyle",
		Python:      "python",
		ScratchDir:  "/tmp",
		TestFlag:    "-ut",
	}
}

// Command is a single composed shell command line.
type Command struct {
	Text string
}

// String returns the command text.
func (c Command) String() string {
	return c.Text
}

// Composer builds command lines for one platform.
type Composer struct {
	platform platform.Platform
	settings Settings
}

// New creates a Composer. The settings are copied.
func New(p platform.Platform, s Settings) *Composer {
	return &Composer{platform: p, settings: s}
}

// Compose returns the single command line for spec in the given mode.
// extraArgs are appended to the project invocation and preCommand is put in
// front of it. Identical inputs always produce identical text.
func (c *Composer) Compose(spec project.Spec, mode Mode, extraArgs, preCommand string) Command {
	if mode == ModeEdit {
		return Command{Text: c.editCommand(spec)}
	}

	sep := c.platform.Separator()

	switch spec.Language {
	case project.LanguagePython:
		lint := join(c.settings.LintCommand, spec.Path)
		run := join(preCommand, c.scriptInvocation(spec.Path), c.settings.TestFlag, extraArgs)

		return Command{Text: lint + sep + run}

	case project.LanguageCpp:
		binary := c.BinaryPath(spec)
		compile := join(c.settings.Compiler, c.settings.Standard, strings.Join(DiagnosticFlags, " "),
			"-o", binary, spec.Path)
		run := join(preCommand, binary, c.settings.TestFlag, extraArgs)

		return Command{Text: c.platform.RemoveFileCommand(binary) + sep + compile + sep + run}

	default:
		return Command{Text: join(preCommand, spec.Path, extraArgs)}
	}
}

// TestSteps returns the commands that run spec's unit tests, in order. Each
// step must succeed before the next one is started.
func (c *Composer) TestSteps(spec project.Spec) []Command {
	switch spec.Language {
	case project.LanguagePython:
		return []Command{{Text: join(c.settings.Python, spec.Path, c.settings.TestFlag)}}

	case project.LanguageCpp:
		binary := c.BinaryPath(spec)

		return []Command{
			{Text: join(c.settings.Compiler, c.settings.Standard, "-o", binary, spec.Path)},
			{Text: join(binary, c.settings.TestFlag)},
		}

	default:
		return []Command{{Text: join(spec.Path, c.settings.TestFlag)}}
	}
}

// BinaryPath returns where the compiled binary of spec is placed. The path
// only depends on the project's base name.
func (c *Composer) BinaryPath(spec project.Spec) string {
	return filepath.Join(c.settings.ScratchDir, spec.BaseName()) + c.platform.ExecutableSuffix()
}

func (c *Composer) editCommand(spec project.Spec) string {
	editor := join(c.platform.EditorInvocation(), spec.Path)

	if spec.Language == project.LanguageOther {
		return editor
	}

	return c.platform.EditAndWatch(editor, join(c.settings.SelfCommand, WatchFlag), spec.Path)
}

func (c *Composer) scriptInvocation(path string) string {
	if c.platform.ScriptsNeedInterpreter() {
		return join(c.settings.Python, path)
	}

	return path
}

// join concatenates the non-empty parts with single spaces.
func join(parts ...string) string {
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return strings.Join(out, " ")
}
