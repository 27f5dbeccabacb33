package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// runOptions holds the flags of the unitframe root command.
type runOptions struct {
	configFile string
	typeKey    string
	watch      bool
	newFile    bool
	pre        string
	args       string
}

// legacyFlags are the single-dash long flags accepted for compatibility
// with older invocations.
var legacyFlags = map[string]string{
	"-type":  "--type",
	"-xterm": "--xterm",
	"-watch": "--watch",
	"-new":   "--new",
	"-pre":   "--pre",
	"-args":  "--args",
}

// valueFlags take the following argument as their value.
var valueFlags = map[string]bool{
	"--type": true, "-t": true,
	"--pre": true, "-p": true,
	"--args": true, "-a": true,
	"--config": true, "--log-level": true, "--log-format": true,
}

// registerGlobalFlags adds the flags shared by unitframe and gate.
func registerGlobalFlags(cmd *cobra.Command, configFile *string) {
	pf := cmd.PersistentFlags()
	pf.StringVar(configFile, "config", "", "config file (default: .unitframe.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")
}

// registerProjectFlags adds the project flags of the unitframe command.
func registerProjectFlags(cmd *cobra.Command, opts *runOptions) {
	f := cmd.Flags()
	f.StringVarP(&opts.typeKey, "type", "t", "", "project type (see \"unitframe types\")")
	f.BoolVarP(&opts.watch, "watch", "x", false, "watch the project and re-run its tests on change")
	f.BoolVar(&opts.watch, "xterm", false, "alias for --watch")
	f.BoolVarP(&opts.newFile, "new", "n", false, "re-create the project from its template")
	f.StringVarP(&opts.pre, "pre", "p", "", "command put in front of the project run")
	f.StringVarP(&opts.args, "args", "a", "", "arguments passed to the project")

	_ = f.MarkHidden("xterm")
}

// NormalizeLegacyArgs rewrites single-dash long flags such as "-type" or
// "-xterm=true" to their double-dash form. Flag values and everything after
// "--" are left untouched.
func NormalizeLegacyArgs(args []string) []string {
	out := make([]string, 0, len(args))
	isValue := false

	for i, arg := range args {
		if arg == "--" {
			out = append(out, args[i:]...)
			break
		}

		if isValue {
			out = append(out, arg)
			isValue = false

			continue
		}

		name, value, hasValue := strings.Cut(arg, "=")
		if long, ok := legacyFlags[name]; ok {
			name = long
			arg = long

			if hasValue {
				arg += "=" + value
			}
		}

		isValue = !hasValue && valueFlags[name]
		out = append(out, arg)
	}

	return out
}
