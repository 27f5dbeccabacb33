package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/unitframe/internal/platform"
	"github.com/hupe1980/unitframe/internal/project"
)

func posixComposer() *Composer {
	s := DefaultSettings()
	s.SelfCommand = "unitframe foo.py"

	return New(platform.NewPOSIX(platform.DefaultOptions()), s)
}

func windowsComposer() *Composer {
	s := DefaultSettings()
	s.ScratchDir = "C:/tmp"
	s.SelfCommand = "unitframe.exe foo.py"

	return New(platform.Windows{}, s)
}

var (
	pySpec    = project.Spec{Path: "foo.py", Language: project.LanguagePython, Extension: "py"}
	ccSpec    = project.Spec{Path: "src/foo.cc", Language: project.LanguageCpp, Extension: "cc"}
	otherSpec = project.Spec{Path: "run.sh", Language: project.LanguageOther, Extension: "sh"}
)

// ---------------------------------------------------------------------------
// Edit mode
// ---------------------------------------------------------------------------

func TestCompose_EditPython(t *testing.T) {
	cmd := posixComposer().Compose(pySpec, ModeEdit, "", "")

	assert.Contains(t, cmd.Text, "$EDITOR foo.py")
	assert.Contains(t, cmd.Text, "unitframe foo.py --watch")
	assert.Contains(t, cmd.Text, "-T 'foo.py'")
	assert.NotContains(t, cmd.Text, "g++")
	assert.Equal(t,
		"xterm +aw -bg darkgreen -fg white -geometry 70x20+0+200 -T 'foo.py' "+
			"-e \"\\$EDITOR foo.py &; unitframe foo.py --watch; csh\"&",
		cmd.Text)
}

func TestCompose_EditCppSameAsPython(t *testing.T) {
	cmd := posixComposer().Compose(ccSpec, ModeEdit, "x", "y")

	assert.Contains(t, cmd.Text, "$EDITOR src/foo.cc")
	assert.Contains(t, cmd.Text, "--watch")
	assert.NotContains(t, cmd.Text, "g++")
}

func TestCompose_EditOther(t *testing.T) {
	cmd := posixComposer().Compose(otherSpec, ModeEdit, "", "")
	assert.Equal(t, "$EDITOR run.sh", cmd.Text)
}

func TestCompose_EditWindows(t *testing.T) {
	cmd := windowsComposer().Compose(pySpec, ModeEdit, "", "")
	assert.Equal(t, `%EDITOR% foo.py & START "foo.py" unitframe.exe foo.py --watch`, cmd.Text)
}

// ---------------------------------------------------------------------------
// Watch mode
// ---------------------------------------------------------------------------

func TestCompose_WatchPython(t *testing.T) {
	c := posixComposer()

	assert.Equal(t, "pycodestyle foo.py ; foo.py -ut",
		c.Compose(pySpec, ModeWatch, "", "").Text)
	assert.Equal(t, "pycodestyle foo.py ; pre foo.py -ut arg",
		c.Compose(pySpec, ModeWatch, "arg", "pre").Text)
}

func TestCompose_WatchPythonWindows(t *testing.T) {
	assert.Equal(t, "pycodestyle foo.py & pre python foo.py -ut arg",
		windowsComposer().Compose(pySpec, ModeWatch, "arg", "pre").Text)
}

func TestCompose_WatchCpp(t *testing.T) {
	text := posixComposer().Compose(ccSpec, ModeWatch, "", "").Text

	rm := strings.Index(text, "rm -f /tmp/foo")
	compile := strings.Index(text, "g++ -std=c++11 "+strings.Join(DiagnosticFlags, " ")+" -o /tmp/foo src/foo.cc")
	run := strings.LastIndex(text, " ; /tmp/foo -ut")

	require.GreaterOrEqual(t, rm, 0, text)
	require.Greater(t, compile, rm, text)
	require.Greater(t, run, compile, text)
	assert.True(t, strings.HasSuffix(text, " -ut"), text)
}

func TestCompose_WatchCppWithArgs(t *testing.T) {
	text := posixComposer().Compose(ccSpec, ModeWatch, "--verbose", "valgrind").Text

	assert.True(t, strings.HasPrefix(text, "rm -f /tmp/foo ; g++ "), text)
	assert.True(t, strings.HasSuffix(text, " ; valgrind /tmp/foo -ut --verbose"), text)
}

func TestCompose_WatchCppWindows(t *testing.T) {
	text := windowsComposer().Compose(ccSpec, ModeWatch, "", "").Text

	assert.True(t, strings.HasPrefix(text, "del /f /q C:/tmp/foo.exe & g++ "), text)
	assert.True(t, strings.HasSuffix(text, " & C:/tmp/foo.exe -ut"), text)
}

func TestCompose_WatchOther(t *testing.T) {
	c := posixComposer()

	assert.Equal(t, "run.sh", c.Compose(otherSpec, ModeWatch, "", "").Text)
	assert.Equal(t, "bash run.sh -x", c.Compose(otherSpec, ModeWatch, "-x", "bash").Text)
}

func TestCompose_Idempotent(t *testing.T) {
	c := posixComposer()

	for _, spec := range []project.Spec{pySpec, ccSpec, otherSpec} {
		for _, mode := range []Mode{ModeEdit, ModeWatch} {
			a := c.Compose(spec, mode, "a b", "pre")
			b := c.Compose(spec, mode, "a b", "pre")
			assert.Equal(t, a, b, "%s/%s", spec.Path, mode)
		}
	}
}

// ---------------------------------------------------------------------------
// Binary path and test steps
// ---------------------------------------------------------------------------

func TestBinaryPath(t *testing.T) {
	c := posixComposer()

	assert.Equal(t, "/tmp/foo", c.BinaryPath(ccSpec))
	assert.Equal(t, c.BinaryPath(ccSpec), c.BinaryPath(project.Spec{Path: "other/dir/foo.cc"}))
	assert.Equal(t, "C:/tmp/foo.exe", windowsComposer().BinaryPath(ccSpec))
}

func TestTestSteps(t *testing.T) {
	c := posixComposer()

	assert.Equal(t, []Command{{Text: "python foo.py -ut"}}, c.TestSteps(pySpec))
	assert.Equal(t, []Command{
		{Text: "g++ -std=c++11 -o /tmp/foo src/foo.cc"},
		{Text: "/tmp/foo -ut"},
	}, c.TestSteps(ccSpec))
	assert.Equal(t, []Command{{Text: "run.sh -ut"}}, c.TestSteps(otherSpec))
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "edit", ModeEdit.String())
	assert.Equal(t, "watch", ModeWatch.String())
	assert.Equal(t, "x", Command{Text: "x"}.String())
}
