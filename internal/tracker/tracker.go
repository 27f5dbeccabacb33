// Package tracker decides whether watched files changed since the last run by
// comparing their modification time against a timestamp.
package tracker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// ErrNotFound is returned when a tracked file does not exist at check time.
var ErrNotFound = errors.New("tracked file not found")

// MissingPolicy selects how AnyModified treats a tracked file that is gone.
type MissingPolicy int

const (
	// MissingSkip treats a missing file as not modified and moves on.
	MissingSkip MissingPolicy = iota
	// MissingAbort returns the ErrNotFound error to the caller.
	MissingAbort
)

// String returns the config spelling of the policy.
func (p MissingPolicy) String() string {
	switch p {
	case MissingSkip:
		return "skip"
	case MissingAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// ParseMissingPolicy converts the config spelling into a MissingPolicy.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch s {
	case "", "skip":
		return MissingSkip, nil
	case "abort":
		return MissingAbort, nil
	default:
		return MissingSkip, fmt.Errorf("unknown missing-files policy %q", s)
	}
}

// StatFunc returns file info for a path. os.Stat satisfies it.
type StatFunc func(path string) (fs.FileInfo, error)

// Tracker compares file modification times with a last-update timestamp.
type Tracker struct {
	now    func() time.Time
	stat   StatFunc
	policy MissingPolicy
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the wall clock used for the skew guard.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithStat overrides the function used to read modification times.
func WithStat(stat StatFunc) Option {
	return func(t *Tracker) {
		t.stat = stat
	}
}

// WithMissingPolicy sets the policy AnyModified applies to missing files.
func WithMissingPolicy(p MissingPolicy) Option {
	return func(t *Tracker) {
		t.policy = p
	}
}

// New creates a Tracker using the real clock and os.Stat.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		now:    time.Now,
		stat:   os.Stat,
		policy: MissingSkip,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// IsModified reports whether path was modified at or after lastUpdate.
//
// A modification time in the future is treated as not yet valid, so a file
// system with a skewed clock cannot trigger a run on every poll. A missing
// file yields an error wrapping ErrNotFound regardless of the policy.
func (t *Tracker) IsModified(path string, lastUpdate time.Time) (bool, error) {
	info, err := t.stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return false, fmt.Errorf("reading modification time of %s: %w", path, err)
	}

	mtime := info.ModTime()
	now := t.now()

	return !now.Before(mtime) && !mtime.Before(lastUpdate), nil
}

// AnyModified reports whether at least one of paths was modified at or after
// lastUpdate. Paths are checked in order and the scan stops at the first hit.
// Missing files are handled according to the tracker's MissingPolicy.
func (t *Tracker) AnyModified(paths []string, lastUpdate time.Time) (bool, error) {
	for _, p := range paths {
		modified, err := t.IsModified(p, lastUpdate)
		if err != nil {
			if errors.Is(err, ErrNotFound) && t.policy == MissingSkip {
				continue
			}

			return false, err
		}

		if modified {
			return true, nil
		}
	}

	return false, nil
}
