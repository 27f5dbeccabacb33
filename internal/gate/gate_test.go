package gate

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/unitframe/internal/compose"
	"github.com/hupe1980/unitframe/internal/logging"
	"github.com/hupe1980/unitframe/internal/platform"
	"github.com/hupe1980/unitframe/internal/project"
)

// scriptedRunner returns a fixed exit code per command substring.
type scriptedRunner struct {
	codes    map[string]int
	err      error
	commands []string
}

func (r *scriptedRunner) Run(_ context.Context, command string) (int, error) {
	r.commands = append(r.commands, command)

	if r.err != nil {
		return -1, r.err
	}

	for sub, code := range r.codes {
		if strings.Contains(command, sub) {
			return code, nil
		}
	}

	return 0, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testOptions(t *testing.T, root string, runner *scriptedRunner, out *bytes.Buffer) Options {
	t.Helper()

	reg, err := project.DefaultRegistry()
	require.NoError(t, err)

	settings := compose.DefaultSettings()
	settings.ScratchDir = "/scratch"

	return Options{
		Root:     root,
		Registry: reg,
		Composer: compose.New(platform.NewPOSIX(platform.DefaultOptions()), settings),
		Runner:   runner,
		Out:      out,
		Logger:   logging.Discard(),
	}
}

// ---------------------------------------------------------------------------
// Discover / HasMarker
// ---------------------------------------------------------------------------

func TestDiscover_OrderAndHiddenDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.py"), "")
	writeFile(t, filepath.Join(root, "a.cc"), "")
	writeFile(t, filepath.Join(root, "sub", "a.py"), "")
	writeFile(t, filepath.Join(root, ".git", "hook.py"), "")
	writeFile(t, filepath.Join(root, "notes.txt"), "")

	files, err := Discover(root, []string{"py", "cc"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "b.py"),
		filepath.Join(root, "sub", "a.py"),
		filepath.Join(root, "a.cc"),
	}, files)
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"), []string{"py", "cc"})
	require.Error(t, err)
}

func TestHasMarker(t *testing.T) {
	dir := t.TempDir()
	marked := filepath.Join(dir, "m.py")
	plain := filepath.Join(dir, "p.py")

	writeFile(t, marked, "import sys\nif sys.argv[-1] == \"-ut\":\n    pass\n")
	writeFile(t, plain, "print(1)\n")

	ok, err := HasMarker(marked, "-ut")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = HasMarker(plain, "-ut")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = HasMarker(filepath.Join(dir, "gone.py"), "-ut")
	require.Error(t, err)
}

func TestHasMarker_LongLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.py")
	writeFile(t, path, "x = '"+strings.Repeat("a", 2<<20)+"'  # -ut\n")

	ok, err := HasMarker(path, "-ut")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGitRoot_FallsBackToDot(t *testing.T) {
	root := GitRoot(context.Background(), t.TempDir())
	assert.NotEmpty(t, root)
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun_AllPassed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "one.py"), "# -ut\n")
	writeFile(t, filepath.Join(root, "two.cc"), "// -ut\n")
	writeFile(t, filepath.Join(root, "untested.py"), "print(1)\n")

	runner := &scriptedRunner{}

	var out bytes.Buffer

	report, err := Run(context.Background(), testOptions(t, root, runner, &out))
	require.NoError(t, err)

	assert.True(t, report.Passed())
	assert.Nil(t, report.Failed())
	assert.NotEqual(t, uuid.Nil, report.RunID)
	require.Len(t, report.Results, 2)
	assert.Equal(t, project.LanguagePython, report.Results[0].Language)
	assert.Equal(t, project.LanguageCpp, report.Results[1].Language)

	assert.Equal(t, []string{
		"python " + filepath.Join(root, "one.py") + " -ut",
		"g++ -std=c++11 -o /scratch/two " + filepath.Join(root, "two.cc"),
		"/scratch/two -ut",
	}, runner.commands)

	assert.Contains(t, out.String(), "GATE: Running Unit Tests for "+filepath.Join(root, "one.py"))
	assert.NotContains(t, out.String(), "untested.py")

	PrintSummary(&out, report)
	assert.Contains(t, out.String(), "GATE: Elapsed Time ")
	assert.Contains(t, out.String(), "GATE: ALL TESTS PASSED!")
}

func TestRun_FailFast(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a_fail.py"), "# -ut\n")
	writeFile(t, filepath.Join(root, "b_pass.py"), "# -ut\n")

	runner := &scriptedRunner{codes: map[string]int{"a_fail.py": 1}}

	var out bytes.Buffer

	report, err := Run(context.Background(), testOptions(t, root, runner, &out))
	require.NoError(t, err)

	assert.Len(t, runner.commands, 1, "only the first file runs")
	assert.False(t, report.Passed())
	require.NotNil(t, report.Failed())
	assert.Equal(t, 1, report.Failed().ExitCode)
	assert.NotContains(t, out.String(), "b_pass.py")

	PrintSummary(&out, report)
	assert.Contains(t, out.String(), "GATE: FAILED!")
}

func TestRun_CompileFailureSkipsBinary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "broken.cc"), "// -ut\n")

	runner := &scriptedRunner{codes: map[string]int{"g++": 1}}

	report, err := Run(context.Background(), testOptions(t, root, runner, &bytes.Buffer{}))
	require.NoError(t, err)

	assert.Len(t, runner.commands, 1)
	assert.False(t, report.Passed())
}

func TestRun_NoMarkedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "plain.py"), "print(1)\n")

	runner := &scriptedRunner{}

	report, err := Run(context.Background(), testOptions(t, root, runner, &bytes.Buffer{}))
	require.NoError(t, err)

	assert.Empty(t, runner.commands)
	assert.True(t, report.Passed())
}

func TestRun_CustomMarkerAndExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "x.py"), "# GATED\n")
	writeFile(t, filepath.Join(root, "y.cc"), "// GATED\n")

	runner := &scriptedRunner{}
	opts := testOptions(t, root, runner, &bytes.Buffer{})
	opts.Marker = "GATED"
	opts.Extensions = []string{"cc"}

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, filepath.Join(root, "y.cc"), report.Results[0].Path)
}

func TestRun_DefaultExtensionsFollowRegistry(t *testing.T) {
	types := filepath.Join(t.TempDir(), "types.yaml")
	writeFile(t, types, `default: pyw
types:
  - key: pyw
    language: python
    extension: pyw
    template: template_program.py
  - key: sh
    language: other
    extension: sh
    template: template_program.sh
`)

	reg, err := project.LoadRegistry(types)
	require.NoError(t, err)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "# -ut\n")
	writeFile(t, filepath.Join(root, "b.pyw"), "# -ut\n")
	writeFile(t, filepath.Join(root, "c.sh"), "# -ut\n")

	runner := &scriptedRunner{}
	opts := testOptions(t, root, runner, &bytes.Buffer{})
	opts.Registry = reg

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, filepath.Join(root, "b.pyw"), report.Results[0].Path)
}

func TestRun_RunnerError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "# -ut\n")

	runner := &scriptedRunner{err: errors.New("no shell")}

	report, err := Run(context.Background(), testOptions(t, root, runner, &bytes.Buffer{}))
	require.Error(t, err)
	assert.False(t, report.Passed())
}

func TestRun_ElapsedUsesClock(t *testing.T) {
	root := t.TempDir()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0

	opts := testOptions(t, root, &scriptedRunner{}, &bytes.Buffer{})
	opts.Clock = func() time.Time {
		calls++
		return t0.Add(time.Duration(calls) * time.Second)
	}

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, time.Second, report.Elapsed)

	var out bytes.Buffer
	PrintSummary(&out, report)
	assert.Contains(t, out.String(), "GATE: Elapsed Time 1.000s")
}

func TestRun_RequiresCollaborators(t *testing.T) {
	_, err := Run(context.Background(), Options{Root: t.TempDir()})
	require.Error(t, err)
}
