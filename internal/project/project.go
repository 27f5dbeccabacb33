// Package project turns a command-line project argument into an immutable
// Spec: language, file extension, template and, for contest-style projects,
// the contest identifier carried in the file name.
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrUnsupportedType is returned when neither the type key nor the file
	// extension map to a registered project type.
	ErrUnsupportedType = errors.New("unsupported project type")

	// ErrMalformedContestPrefix is returned when a contest-style project name
	// lacks the <contest>_<name> prefix or the contest id is not numeric.
	ErrMalformedContestPrefix = errors.New("malformed contest prefix")
)

var (
	contestNameRe = regexp.MustCompile(`^([^_]*)_(.*)$`)
	contestIDRe   = regexp.MustCompile(`(\d+)(\w)`)
)

// Language is the programming language of a project.
type Language int

const (
	// LanguageOther is run as-is without lint or compile steps.
	LanguageOther Language = iota
	// LanguagePython is linted and run with the test flag.
	LanguagePython
	// LanguageCpp is compiled into a scratch binary before running.
	LanguageCpp
)

// String returns the spelling used in type tables.
func (l Language) String() string {
	switch l {
	case LanguagePython:
		return "python"
	case LanguageCpp:
		return "c++"
	default:
		return "other"
	}
}

// ParseLanguage converts a type table spelling into a Language.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "py":
		return LanguagePython, nil
	case "c++", "cpp", "cc":
		return LanguageCpp, nil
	case "other", "exec", "":
		return LanguageOther, nil
	default:
		return LanguageOther, fmt.Errorf("unknown language %q", s)
	}
}

// Spec describes one project. It is built once by Resolve and passed by value.
type Spec struct {
	// Path is the project file, extension included.
	Path string
	// TypeKey is the registry key the project was resolved to.
	TypeKey string
	// Language selects the lint/compile/run recipe.
	Language Language
	// Extension is the file extension without dot.
	Extension string
	// Template is the template file used for scaffolding.
	Template string
	// ContestStyle is set for projects named <contest>_<name>.
	ContestStyle bool
	// ContestID is the prefix before the first underscore, e.g. "552A".
	ContestID string
	// ContestProject is the remainder after the first underscore.
	ContestProject string
}

// BaseName returns the file name without directory and extension.
func (s Spec) BaseName() string {
	return stripExt(filepath.Base(s.Path))
}

// ProjectName is the name used for generated identifiers: the contest
// project part for contest-style projects, the base name otherwise.
func (s Spec) ProjectName() string {
	if s.ContestStyle {
		return s.ContestProject
	}

	return s.BaseName()
}

// ContestURL returns the problem reference for contest-style projects, for
// example "Codeforces.com/problemset/problem/552/A". It is empty otherwise.
func (s Spec) ContestURL() string {
	if !s.ContestStyle {
		return ""
	}

	m := contestIDRe.FindStringSubmatch(s.ContestID)
	if m == nil {
		return ""
	}

	return fmt.Sprintf("Codeforces.com/problemset/problem/%s/%s", m[1], m[2])
}

// Resolve builds the Spec for path.
//
// An explicit typeKey must be registered. Without one, the file extension
// picks the type, and a path without extension gets the registry default.
// A registered extension that disagrees with the chosen type wins over it.
// The type's extension is appended when the path lacks it.
func Resolve(reg *Registry, path, typeKey string) (Spec, error) {
	if path == "" {
		return Spec{}, errors.New("project path must not be empty")
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")

	var (
		def TypeDef
		ok  bool
	)

	switch {
	case typeKey != "":
		def, ok = reg.Lookup(typeKey)
		if !ok {
			return Spec{}, fmt.Errorf("%w: %q (known: %s)", ErrUnsupportedType, typeKey, strings.Join(reg.Keys(), ", "))
		}
	case ext != "":
		def, ok = reg.ByExtension(ext)
		if !ok {
			return Spec{}, fmt.Errorf("%w: extension %q", ErrUnsupportedType, ext)
		}
	default:
		def = reg.Default()
	}

	if ext != "" && ext != def.Extension {
		if byExt, found := reg.ByExtension(ext); found {
			def = byExt
		}
	}

	if def.Extension != "" && !strings.HasSuffix(path, "."+def.Extension) {
		path += "." + def.Extension
	}

	spec := Spec{
		Path:      path,
		TypeKey:   def.Key,
		Language:  def.Language,
		Extension: def.Extension,
		Template:  def.Template,
	}

	if def.IsContest() {
		id, name, err := splitContestName(spec.BaseName())
		if err != nil {
			return Spec{}, err
		}

		spec.ContestStyle = true
		spec.ContestID = id
		spec.ContestProject = name
	}

	return spec, nil
}

// splitContestName splits "552A_project" into "552A" and "project".
func splitContestName(name string) (string, string, error) {
	m := contestNameRe.FindStringSubmatch(name)
	if m == nil {
		return "", "", fmt.Errorf("%w: expected <contest>_<name>, got %q", ErrMalformedContestPrefix, name)
	}

	if !contestIDRe.MatchString(m[1]) {
		return "", "", fmt.Errorf("%w: contest id %q is not numeric", ErrMalformedContestPrefix, m[1])
	}

	return m[1], m[2], nil
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
