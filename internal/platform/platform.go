// Package platform hides the differences between POSIX shells and the
// Windows command interpreter behind one capability interface. Everything
// that used to be an OS-conditional string lives here.
package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform exposes the OS-specific pieces of composed command lines.
type Platform interface {
	// Name identifies the platform family ("posix" or "windows").
	Name() string

	// Separator chains two commands so the second runs after the first,
	// regardless of the first one's exit status.
	Separator() string

	// EditorInvocation references the user's editor environment variable.
	// It is substituted verbatim and expanded by the shell.
	EditorInvocation() string

	// ClearScreenCommand clears the terminal.
	ClearScreenCommand() string

	// Shell returns the interpreter and the arguments that precede the
	// command string.
	Shell() (string, []string)

	// ExecutableSuffix is appended to compiled binaries.
	ExecutableSuffix() string

	// RemoveFileCommand deletes path without failing when it is absent.
	RemoveFileCommand(path string) string

	// ScriptsNeedInterpreter reports whether scripts must be started
	// through their interpreter instead of directly.
	ScriptsNeedInterpreter() bool

	// EditAndWatch opens editorCmd and starts watchCmd next to it.
	EditAndWatch(editorCmd, watchCmd, title string) string

	// Quote protects an argument containing blanks from word splitting.
	Quote(arg string) string
}

// Options tune the platform implementations.
type Options struct {
	// Terminal is the terminal emulator started in edit mode on POSIX.
	Terminal string

	// TerminalOptions are passed to Terminal.
	TerminalOptions string

	// HoldShell keeps the terminal open after the watcher exits.
	HoldShell string
}

// DefaultOptions returns the options the tool ships with.
func DefaultOptions() Options {
	return Options{
		Terminal:        "xterm",
		TerminalOptions: "+aw -bg darkgreen -fg white -geometry 70x20+0+200",
		HoldShell:       "csh",
	}
}

// ForOS returns the implementation for the given GOOS value.
func ForOS(goos string, opts Options) Platform {
	if goos == "windows" {
		return Windows{}
	}

	return POSIX{opts: opts}
}

// Current returns the implementation for the running OS.
func Current(opts Options) Platform {
	return ForOS(runtime.GOOS, opts)
}

// POSIX targets Linux, macOS and the BSDs.
type POSIX struct {
	opts Options
}

// NewPOSIX creates a POSIX platform.
func NewPOSIX(opts Options) POSIX {
	return POSIX{opts: opts}
}

func (POSIX) Name() string                 { return "posix" }
func (POSIX) Separator() string            { return " ; " }
func (POSIX) EditorInvocation() string     { return "$EDITOR" }
func (POSIX) ClearScreenCommand() string   { return "clear" }
func (POSIX) Shell() (string, []string)    { return "sh", []string{"-c"} }
func (POSIX) ExecutableSuffix() string     { return "" }
func (POSIX) ScriptsNeedInterpreter() bool { return false }

func (POSIX) RemoveFileCommand(path string) string {
	return "rm -f " + path
}

// Quote wraps arg in single quotes when it contains blanks or quotes.
func (POSIX) Quote(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t'\"") {
		return arg
	}

	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// EditAndWatch opens a terminal titled title that starts the editor in the
// background and runs the watcher in the foreground.
func (p POSIX) EditAndWatch(editorCmd, watchCmd, title string) string {
	terminal := p.opts.Terminal
	if p.opts.TerminalOptions != "" {
		terminal += " " + p.opts.TerminalOptions
	}

	inner := editorCmd + " &; " + watchCmd
	if p.opts.HoldShell != "" {
		inner += "; " + p.opts.HoldShell
	}

	return fmt.Sprintf("%s -T '%s' -e \"%s\"&", terminal, strings.ReplaceAll(title, "'", `'\''`), doubleQuoted.Replace(inner))
}

// doubleQuoted escapes the characters that stay special inside a
// double-quoted sh word.
var doubleQuoted = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")

// Windows targets cmd.exe.
type Windows struct{}

func (Windows) Name() string                 { return "windows" }
func (Windows) Separator() string            { return " & " }
func (Windows) EditorInvocation() string     { return "%EDITOR%" }
func (Windows) ClearScreenCommand() string   { return "cls" }
func (Windows) Shell() (string, []string)    { return "cmd", []string{"/C"} }
func (Windows) ExecutableSuffix() string     { return ".exe" }
func (Windows) ScriptsNeedInterpreter() bool { return true }

func (Windows) RemoveFileCommand(path string) string {
	return "del /f /q " + path
}

// Quote wraps arg in double quotes when it contains blanks.
func (Windows) Quote(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\"") {
		return arg
	}

	return `"` + strings.ReplaceAll(arg, `"`, `""`) + `"`
}

// EditAndWatch runs the editor and starts the watcher in a new console
// titled title. START takes its first quoted argument as the title, so one
// is always given.
func (w Windows) EditAndWatch(editorCmd, watchCmd, title string) string {
	return editorCmd + w.Separator() + `START "` + strings.ReplaceAll(title, `"`, "") + `" ` + watchCmd
}
