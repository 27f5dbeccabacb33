package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/unitframe/internal/shell"
)

// DefaultInterval is the pause between two polls.
const DefaultInterval = 500 * time.Millisecond

// Checker reports whether any of paths changed since lastUpdate.
// *tracker.Tracker satisfies it.
type Checker interface {
	AnyModified(paths []string, lastUpdate time.Time) (bool, error)
}

// Clearer wipes the terminal before each run. *shell.Executor satisfies it.
type Clearer interface {
	Clear(ctx context.Context)
}

// SleepFunc pauses for d or until ctx is done, whichever comes first. It
// returns ctx.Err() when interrupted.
type SleepFunc func(ctx context.Context, d time.Duration) error

// State is the position of the loop in its poll cycle.
type State int

const (
	// StateIdle is the state before the first poll.
	StateIdle State = iota
	// StatePolling means the loop is checking or waiting for changes.
	StatePolling
	// StateTriggered means a change was seen and the command is running.
	StateTriggered
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateTriggered:
		return "triggered"
	default:
		return "idle"
	}
}

// Options configures the watch behaviour.
type Options struct {
	// Paths are the files whose modification triggers a run, checked in order.
	Paths []string

	// Label names the project in the status line printed before each run.
	Label string

	// Command is the composed command line run on every change.
	Command string

	// Interval is the pause between two polls.
	Interval time.Duration

	// Checker decides whether the watched files changed.
	Checker Checker

	// Runner executes Command.
	Runner shell.Runner

	// Clearer wipes the screen before each run. Nil leaves the screen alone.
	Clearer Clearer

	// Clock returns the current time.
	Clock func() time.Time

	// Sleep waits between polls.
	Sleep SleepFunc

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status lines.
	Out io.Writer
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Interval: DefaultInterval,
		Clock:    time.Now,
		Sleep:    Sleep,
		Logger:   slog.Default(),
		Out:      os.Stdout,
	}
}

// Sleep waits for d unless ctx is cancelled first.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Loop polls the watched files and runs the command after each change.
// A Loop is owned by a single goroutine.
type Loop struct {
	opts       Options
	state      State
	lastUpdate time.Time
	runs       int
}

// New validates opts and creates a Loop. Unset optional fields fall back to
// DefaultOptions.
func New(opts Options) (*Loop, error) {
	if len(opts.Paths) == 0 {
		return nil, errors.New("watch: no paths to track")
	}

	if opts.Checker == nil {
		return nil, errors.New("watch: checker is required")
	}

	if opts.Runner == nil {
		return nil, errors.New("watch: runner is required")
	}

	d := DefaultOptions()

	if opts.Interval <= 0 {
		opts.Interval = d.Interval
	}

	if opts.Clock == nil {
		opts.Clock = d.Clock
	}

	if opts.Sleep == nil {
		opts.Sleep = d.Sleep
	}

	if opts.Logger == nil {
		opts.Logger = d.Logger
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if opts.Label == "" {
		opts.Label = opts.Paths[0]
	}

	opts.Paths = append([]string(nil), opts.Paths...)

	return &Loop{opts: opts, state: StateIdle}, nil
}

// State returns the current state.
func (l *Loop) State() State {
	return l.state
}

// LastUpdate returns the time of the last triggered run, or the zero time.
func (l *Loop) LastUpdate() time.Time {
	return l.lastUpdate
}

// Runs returns how many times the command was started.
func (l *Loop) Runs() int {
	return l.runs
}

// Paths returns a copy of the tracked paths.
func (l *Loop) Paths() []string {
	return append([]string(nil), l.opts.Paths...)
}

// Run polls until ctx is cancelled, which returns nil. It returns an error
// only when checking the watched files fails.
func (l *Loop) Run(ctx context.Context) error {
	l.opts.Logger.Debug("watch started",
		slog.Any("paths", l.opts.Paths),
		slog.Duration("interval", l.opts.Interval),
	)

	for {
		if ctx.Err() != nil {
			break
		}

		if _, err := l.Poll(ctx); err != nil {
			return err
		}

		if err := l.opts.Sleep(ctx, l.opts.Interval); err != nil {
			break
		}
	}

	l.opts.Logger.Debug("watch stopped", slog.Int("runs", l.runs))

	return nil
}

// Poll checks the watched files once and, when one of them changed, runs the
// command synchronously. It reports whether the command was run.
//
// The last-update timestamp is advanced before the command starts, so
// changes the command makes itself are not picked up, while edits made
// during the run trigger the next poll.
func (l *Loop) Poll(ctx context.Context) (bool, error) {
	l.state = StatePolling

	modified, err := l.opts.Checker.AnyModified(l.opts.Paths, l.lastUpdate)
	if err != nil {
		return false, fmt.Errorf("checking watched files: %w", err)
	}

	if !modified {
		return false, nil
	}

	l.state = StateTriggered

	now := l.opts.Clock()
	if now.After(l.lastUpdate) {
		l.lastUpdate = now
	}

	if l.opts.Clearer != nil {
		l.opts.Clearer.Clear(ctx)
	}

	_, _ = fmt.Fprintf(l.opts.Out, "%s Running %s\n", now.Format("15:04:05"), l.opts.Label)

	l.runs++

	code, runErr := l.opts.Runner.Run(ctx, l.opts.Command)
	if runErr != nil {
		l.opts.Logger.Warn("command did not run", slog.String("error", runErr.Error()))
	} else {
		l.opts.Logger.Debug("command finished", slog.Int("exitCode", code))
	}

	l.state = StatePolling

	return true, nil
}
