package scaffold

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffResult holds the unified diff between a replaced project file and its
// freshly rendered template.
type DiffResult struct {
	Unified        string
	HasDifferences bool
}

// ComputeDiff computes a unified diff between the old and new file content.
func ComputeDiff(oldDoc, newDoc, path string) (*DiffResult, error) {
	diff := difflib.UnifiedDiff{
		A:        splitLines(oldDoc),
		B:        splitLines(newDoc),
		FromFile: path + " (existing)",
		ToFile:   path + " (template)",
		Context:  3,
	}

	unified, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}

	return &DiffResult{Unified: unified, HasDifferences: unified != ""}, nil
}

// WriteDiff writes the diff, or a short notice when nothing changed.
func WriteDiff(w io.Writer, result *DiffResult) {
	if !result.HasDifferences {
		_, _ = fmt.Fprintln(w, "template matches existing file")
		return
	}

	_, _ = io.WriteString(w, result.Unified)
}

// splitLines splits a string into lines for diff processing.
// Each element includes a trailing newline for difflib compatibility.
func splitLines(s string) []string {
	if s == "" {
		return []string{""}
	}

	return strings.SplitAfter(s, "\n")
}
