package project

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/unitframe/internal/version"
)

//go:embed types.yaml
var defaultTypes []byte

// CategoryContest marks templates whose file names carry a contest prefix.
const CategoryContest = "contest"

// TypeDef is one row of the project type table.
type TypeDef struct {
	Key       string
	Language  Language
	Extension string
	Template  string
	Category  string
}

// IsContest reports whether the type uses the contest naming convention.
func (d TypeDef) IsContest() bool {
	return d.Category == CategoryContest
}

// Registry is an ordered, immutable table of project types.
type Registry struct {
	defaultKey string
	types      []TypeDef
	byKey      map[string]int
}

// registryFile is the on-disk layout shared by the YAML and TOML formats.
type registryFile struct {
	Requires string      `yaml:"requires" toml:"requires"`
	Default  string      `yaml:"default" toml:"default"`
	Types    []typeEntry `yaml:"types" toml:"types"`
}

type typeEntry struct {
	Key       string `yaml:"key" toml:"key"`
	Language  string `yaml:"language" toml:"language"`
	Extension string `yaml:"extension" toml:"extension"`
	Template  string `yaml:"template" toml:"template"`
	Category  string `yaml:"category" toml:"category"`
}

// NewRegistry validates types and builds a Registry. Keys must be unique and
// defaultKey must name one of them.
func NewRegistry(defaultKey string, types []TypeDef) (*Registry, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("type registry is empty")
	}

	r := &Registry{
		defaultKey: defaultKey,
		types:      make([]TypeDef, 0, len(types)),
		byKey:      make(map[string]int, len(types)),
	}

	for _, t := range types {
		if t.Key == "" {
			return nil, fmt.Errorf("type entry %d has no key", len(r.types))
		}

		if _, dup := r.byKey[t.Key]; dup {
			return nil, fmt.Errorf("duplicate type key %q", t.Key)
		}

		if t.Template == "" {
			return nil, fmt.Errorf("type %q has no template", t.Key)
		}

		if t.Category != "" && t.Category != CategoryContest {
			return nil, fmt.Errorf("type %q has unknown category %q", t.Key, t.Category)
		}

		t.Extension = strings.TrimPrefix(t.Extension, ".")

		r.byKey[t.Key] = len(r.types)
		r.types = append(r.types, t)
	}

	if _, ok := r.byKey[defaultKey]; !ok {
		return nil, fmt.Errorf("default type %q is not registered", defaultKey)
	}

	return r, nil
}

// DefaultRegistry returns the built-in type table.
func DefaultRegistry() (*Registry, error) {
	return ParseRegistry(defaultTypes, "yaml")
}

// LoadRegistry reads a type table from path. Files ending in .toml are parsed
// as TOML, everything else as YAML.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied config path
	if err != nil {
		return nil, fmt.Errorf("reading types file %s: %w", path, err)
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}

	r, err := ParseRegistry(data, format)
	if err != nil {
		return nil, fmt.Errorf("loading types file %s: %w", path, err)
	}

	return r, nil
}

// ParseRegistry decodes a type table in the given format ("yaml" or "toml")
// and checks its version requirement against the running binary.
func ParseRegistry(data []byte, format string) (*Registry, error) {
	var raw registryFile

	switch format {
	case "toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
			return nil, fmt.Errorf("parsing TOML type table: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing YAML type table: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported type table format %q", format)
	}

	if err := checkRequires(raw.Requires, version.Current(), version.IsDevelopment()); err != nil {
		return nil, err
	}

	types := make([]TypeDef, 0, len(raw.Types))

	for _, e := range raw.Types {
		lang, err := ParseLanguage(e.Language)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", e.Key, err)
		}

		types = append(types, TypeDef{
			Key:       e.Key,
			Language:  lang,
			Extension: e.Extension,
			Template:  e.Template,
			Category:  e.Category,
		})
	}

	r, err := NewRegistry(raw.Default, types)
	if err != nil {
		return nil, err
	}


	return r, nil
}

// checkRequires enforces a semver constraint on the tool version. Development
// builds carry no comparable version and always pass.
func checkRequires(constraint, actual string, dev bool) error {
	if constraint == "" || dev {
		return nil
	}

	ok, err := version.Satisfies(constraint, actual)
	if err != nil {
		return fmt.Errorf("checking type table requirement: %w", err)
	}

	if !ok {
		return fmt.Errorf("type table requires version %s, running %s", constraint, actual)
	}

	return nil
}

// Lookup returns the type registered under key.
func (r *Registry) Lookup(key string) (TypeDef, bool) {
	i, ok := r.byKey[key]
	if !ok {
		return TypeDef{}, false
	}

	return r.types[i], true
}

// ByExtension returns the first type registered for ext (without dot).
func (r *Registry) ByExtension(ext string) (TypeDef, bool) {
	ext = strings.TrimPrefix(ext, ".")

	for _, t := range r.types {
		if t.Extension == ext {
			return t, true
		}
	}

	return TypeDef{}, false
}

// Default returns the type used when neither key nor extension decide.
func (r *Registry) Default() TypeDef {
	return r.types[r.byKey[r.defaultKey]]
}

// Types returns a copy of all types in table order.
func (r *Registry) Types() []TypeDef {
	out := make([]TypeDef, len(r.types))
	copy(out, r.types)

	return out
}

// Keys returns all type keys in table order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.types))
	for i, t := range r.types {
		keys[i] = t.Key
	}

	return keys
}

// Extensions returns the distinct extensions of the given languages in table
// order. With no languages, extensions of all types are returned.
func (r *Registry) Extensions(langs ...Language) []string {
	seen := make(map[string]bool)

	var exts []string

	for _, t := range r.types {
		if t.Extension == "" || seen[t.Extension] {
			continue
		}

		if len(langs) > 0 && !slices.Contains(langs, t.Language) {
			continue
		}

		seen[t.Extension] = true
		exts = append(exts, t.Extension)
	}

	return exts
}
