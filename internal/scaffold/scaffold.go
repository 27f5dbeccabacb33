// Package scaffold creates new project files from templates, filling in the
// file name, class name, date, user and contest placeholders.
package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/hupe1980/unitframe/internal/project"
)

//go:embed templates/*
var embedded embed.FS

// Placeholders understood by the templates.
const (
	PlaceholderFilename = "__Filename__"
	PlaceholderClass    = "__Class__"
	PlaceholderDate     = "__Date__"
	PlaceholderYear     = "__Year__"
	PlaceholderUser     = "__User__"
	PlaceholderContest  = "__Contest__"
)

// Templates returns the template file system: dir when set, the embedded
// templates otherwise.
func Templates(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}

	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err) // the embedded directory is fixed at build time
	}

	return sub
}

// Values are the placeholder substitutions for one project.
type Values struct {
	Filename string
	Class    string
	Date     string
	Year     string
	User     string
	Contest  string
}

// NewValues computes the substitutions for spec at time now for user.
func NewValues(spec project.Spec, now time.Time, userName string) Values {
	contest := ""
	if url := spec.ContestURL(); url != "" {
		contest = " " + url
	}

	return Values{
		Filename: spec.Path,
		Class:    capitalize(spec.ProjectName()),
		Date:     now.Format("02/01/2006"),
		Year:     strconv.Itoa(now.Year()),
		User:     capitalize(userName),
		Contest:  contest,
	}
}

// Render substitutes every placeholder in tmpl.
func Render(tmpl []byte, v Values) []byte {
	r := strings.NewReplacer(
		PlaceholderFilename, v.Filename,
		PlaceholderClass, v.Class,
		PlaceholderDate, v.Date,
		PlaceholderYear, v.Year,
		PlaceholderUser, v.User,
		PlaceholderContest, v.Contest,
	)

	return []byte(r.Replace(string(tmpl)))
}

// Result describes what Create did.
type Result struct {
	// Created is set when the project file was written.
	Created bool
	// Overwritten is set when an existing file was replaced.
	Overwritten bool
	// Diff compares the replaced content with the new one.
	Diff *DiffResult
}

// Scaffolder creates project files from a template file system.
type Scaffolder struct {
	templates fs.FS
	now       func() time.Time
	user      func() string
	out       io.Writer
	logger    *slog.Logger
}

// Option configures a Scaffolder.
type Option func(*Scaffolder)

// WithClock overrides the time used for the date placeholders.
func WithClock(now func() time.Time) Option {
	return func(s *Scaffolder) {
		s.now = now
	}
}

// WithUser overrides the user name lookup.
func WithUser(name func() string) Option {
	return func(s *Scaffolder) {
		s.user = name
	}
}

// WithOutput sets where diffs of overwritten files are printed.
func WithOutput(w io.Writer) Option {
	return func(s *Scaffolder) {
		s.out = w
	}
}

// WithLogger sets a logger for the Scaffolder.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scaffolder) {
		s.logger = logger
	}
}

// New creates a Scaffolder reading templates from fsys.
func New(fsys fs.FS, opts ...Option) *Scaffolder {
	s := &Scaffolder{
		templates: fsys,
		now:       time.Now,
		user:      currentUser,
		out:       io.Discard,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create writes the project file for spec from its template. An existing
// file is left alone unless force is set, in which case it is replaced and
// the difference is printed.
func (s *Scaffolder) Create(spec project.Spec, force bool) (*Result, error) {
	existing, err := os.ReadFile(spec.Path)

	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading project file %s: %w", spec.Path, err)
	}

	if exists && !force {
		return &Result{}, nil
	}

	tmpl, err := fs.ReadFile(s.templates, spec.Template)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", spec.Template, err)
	}

	content := Render(tmpl, NewValues(spec, s.now(), s.user()))
	perm := projectMode(spec.Language)

	res := &Result{Created: true, Overwritten: exists}

	if exists {
		if bytes.Equal(existing, content) {
			if err := os.Chmod(spec.Path, perm); err != nil {
				return nil, fmt.Errorf("setting mode of %s: %w", spec.Path, err)
			}

			return &Result{}, nil
		}

		res.Diff, err = ComputeDiff(string(existing), string(content), spec.Path)
		if err != nil {
			return nil, err
		}

		WriteDiff(s.out, res.Diff)
		s.logger.Warn("overwriting existing project file", slog.String("path", spec.Path))
	}

	if err := writeProjectFile(spec.Path, content, perm); err != nil {
		return nil, err
	}

	s.logger.Info("created project from template",
		slog.String("path", spec.Path),
		slog.String("template", spec.Template),
	)

	return res, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}

	if name := os.Getenv("USER"); name != "" {
		return name
	}

	return os.Getenv("USERNAME")
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}

	lower := strings.ToLower(s)
	r, size := utf8.DecodeRuneInString(lower)

	return string(unicode.ToUpper(r)) + lower[size:]
}
