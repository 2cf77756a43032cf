package recipe

import (
	"fmt"
	"slices"
	"strings"

	"github.com/goplus/llpkg/pkgs/mod/versions"
)

// Identity identifies a package. It is set when the recipe is authored
// and never changes.
type Identity struct {
	Name        string
	Version     string
	Author      string
	URL         string
	Description string
}

// String returns "name/version".
func (id Identity) String() string {
	return id.Name + "/" + id.Version
}

// Requirement is a build-time dependency on a named package within a
// version range.
type Requirement struct {
	Name  string
	Range versions.Range
}

// ParseRequirement parses a reference of the form "name/[range]" or
// "name/version".
func ParseRequirement(ref string) (Requirement, error) {
	name, rng, ok := strings.Cut(ref, "/")
	if !ok || name == "" || rng == "" {
		return Requirement{}, fmt.Errorf("invalid requirement %q: want name/[range]", ref)
	}
	if strings.HasPrefix(rng, "[") {
		if !strings.HasSuffix(rng, "]") {
			return Requirement{}, fmt.Errorf("invalid requirement %q: unterminated range", ref)
		}
		rng = rng[1 : len(rng)-1]
	}
	r, err := versions.ParseRange(rng)
	if err != nil {
		return Requirement{}, fmt.Errorf("invalid requirement %q: %w", ref, err)
	}
	return Requirement{Name: name, Range: r}, nil
}

// MustParseRequirement is like ParseRequirement but panics on error. It
// is meant for recipe declarations.
func MustParseRequirement(ref string) Requirement {
	r, err := ParseRequirement(ref)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Requirement) String() string {
	return r.Name + "/[" + r.Range.String() + "]"
}

// Auto marks a source coordinate field that is derived from the
// recipe's own checkout when the recipe is exported.
const Auto = "auto"

// SourceCoordinate tells the source-acquisition collaborator where the
// package sources live.
type SourceCoordinate struct {
	Kind      string // "git"
	URL       string // remote location, or Auto
	Revision  string // commit, tag or branch, or Auto
	Subfolder string // checkout destination below the source root
	Username  string // optional user for the remote
}

// IsResolved reports whether neither URL nor Revision is Auto.
func (s SourceCoordinate) IsResolved() bool {
	return s.URL != Auto && s.Revision != Auto
}

// Recipe is the authored description of how to build and package one
// library version.
type Recipe struct {
	Identity      Identity
	Settings      []string // platform axes the package varies over
	Options       OptionSchema
	BuildRequires []Requirement
	Source        SourceCoordinate
	Generators    []string
}

// Validate checks the declaration itself, independently of any session.
func (r *Recipe) Validate() error {
	if r.Identity.Name == "" || r.Identity.Version == "" {
		return configErrorf("recipe must declare a name and a version")
	}
	for _, k := range r.Settings {
		if !slices.Contains(settingKeys, k) {
			return configErrorf("recipe %s declares unknown setting %q", r.Identity, k)
		}
	}
	if !slices.Contains(r.Settings, SettingBuildType) {
		return configErrorf("recipe %s must vary over %s", r.Identity, SettingBuildType)
	}
	if r.Source.Subfolder == "" {
		return configErrorf("recipe %s: source subfolder is empty", r.Identity)
	}
	return r.Options.Validate()
}

// DerivePlan computes the build plan for the given settings and options.
// It is a pure function of its inputs.
func (r *Recipe) DerivePlan(settings Settings, options Options, verbose bool) (Plan, error) {
	return derivePlan(settings, options, r.Source.Subfolder, verbose)
}

// Session is the immutable configuration of one build invocation: the
// recipe, the host settings and the resolved options. It is created once
// before any phase runs and handed to every phase.
type Session struct {
	recipe   *Recipe
	settings Settings
	options  Options
}

// NewSession validates the recipe and the settings, resolves option
// overrides against the recipe's schema and returns the session.
func (r *Recipe) NewSession(settings Settings, overrides map[string]string) (*Session, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	for _, k := range settingKeys {
		if v, _ := settings.Get(k); v != "" && !slices.Contains(r.Settings, k) {
			return nil, configErrorf("recipe %s does not vary over %s", r.Identity, k)
		}
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	options, err := r.Options.Resolve(overrides)
	if err != nil {
		return nil, err
	}
	return &Session{recipe: r, settings: settings, options: options}, nil
}

func (s *Session) Recipe() *Recipe    { return s.recipe }
func (s *Session) Settings() Settings { return s.settings }
func (s *Session) Options() Options   { return s.options }
func (s *Session) Identity() Identity { return s.recipe.Identity }

// Plan derives the build plan of this session.
func (s *Session) Plan(verbose bool) (Plan, error) {
	return s.recipe.DerivePlan(s.settings, s.options, verbose)
}
