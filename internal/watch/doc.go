// Package watch implements unitframe's watch mode: a polling loop that
// re-runs the composed project command every time a tracked file changes.
// There is no file-system event notification; the loop compares
// modification times at a fixed interval and runs the command synchronously,
// so a long-running command delays the next poll by its own duration.
package watch
