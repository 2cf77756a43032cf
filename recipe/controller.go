package recipe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/goplus/llpkg/internal/fsutil"
	"github.com/goplus/llpkg/pkgs/buildsys"
	"github.com/goplus/llpkg/pkgs/generator"
)

// Controller runs the lifecycle phases of a recipe against a native build
// system. It holds no recipe state: every phase receives the session or
// the handle produced by the previous phase.
type Controller struct {
	bs         buildsys.BuildSystem
	sourceRoot string
	buildDir   string
	installDir string
	deps       []buildsys.Dependency
	verbose    bool
	logger     hclog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithSourceRoot sets the directory below which the source tree has been
// materialized, at <root>/<subfolder>.
func WithSourceRoot(dir string) Option {
	return func(c *Controller) { c.sourceRoot = dir }
}

// WithBuildDir sets the build tree directory. It defaults to
// <source root>/build.
func WithBuildDir(dir string) Option {
	return func(c *Controller) { c.buildDir = dir }
}

// WithInstallDir sets the package output location used by Package.
func WithInstallDir(dir string) Option {
	return func(c *Controller) { c.installDir = dir }
}

// WithDependencies sets the resolved build dependencies.
func WithDependencies(deps ...buildsys.Dependency) Option {
	return func(c *Controller) { c.deps = append(c.deps, deps...) }
}

// WithVerbose sets the verbosity flag of derived plans.
func WithVerbose(v bool) Option {
	return func(c *Controller) { c.verbose = v }
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController returns a Controller driving bs.
func NewController(bs buildsys.BuildSystem, opts ...Option) *Controller {
	c := &Controller{
		bs:      bs,
		verbose: true,
		logger:  hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConfiguredBuild is the handle of a configured build tree. It carries
// the plan derived at configure time to the later phases.
type ConfiguredBuild struct {
	session   *Session
	plan      Plan
	sourceDir string
	buildDir  string
	state     State
}

func (h *ConfiguredBuild) Session() *Session { return h.session }
func (h *ConfiguredBuild) Plan() Plan        { return h.plan }
func (h *ConfiguredBuild) SourceDir() string { return h.sourceDir }
func (h *ConfiguredBuild) BuildDir() string  { return h.buildDir }
func (h *ConfiguredBuild) State() State      { return h.state }

func (h *ConfiguredBuild) transition(to State) error {
	if !isAllowedTransition(h.state, to) {
		return fmt.Errorf("build tree is %s, cannot become %s", h.state, to)
	}
	h.state = to
	return nil
}

// Artifacts lists what Package installed.
type Artifacts struct {
	Dir       string
	Files     []string // all installed files, relative to Dir, slash separated
	Headers   []string
	Libraries []string
	Metadata  []string // CMake package config and pkg-config files
}

// Configure derives the plan of the session and configures a build tree
// from the materialized source tree.
func (c *Controller) Configure(ctx context.Context, s *Session) (*ConfiguredBuild, error) {
	plan, err := s.Plan(c.verbose)
	if err != nil {
		return nil, err
	}
	log := c.logger.With("phase", PhaseConfigure, "package", s.Identity().String())

	sourceDir := filepath.Join(c.sourceRoot, plan.SourceFolder)
	fi, err := os.Stat(sourceDir)
	if err != nil {
		return nil, phaseErrorf(ErrConfigure, PhaseConfigure, err, "source tree is not materialized")
	}
	if !fi.IsDir() {
		return nil, phaseErrorf(ErrConfigure, PhaseConfigure, nil, "source tree %s is not a directory", sourceDir)
	}
	buildDir := c.buildDir
	if buildDir == "" {
		buildDir = filepath.Join(c.sourceRoot, "build")
	}
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return nil, phaseErrorf(ErrConfigure, PhaseConfigure, err, "create build tree")
	}

	var caches []string
	for _, name := range s.Recipe().Generators {
		g, ok := generator.Lookup(name)
		if !ok {
			return nil, phaseErrorf(ErrConfigure, PhaseConfigure, nil, "unknown generator %q", name)
		}
		path, err := g.Generate(buildDir, c.deps)
		if err != nil {
			return nil, phaseErrorf(ErrConfigure, PhaseConfigure, err, "generator %s", name)
		}
		log.Debug("generated", "generator", name, "file", path)
		if strings.HasSuffix(path, ".cmake") {
			caches = append(caches, path)
		}
	}
	for _, dep := range c.deps {
		log.Debug("using dependency", "name", dep.Name, "version", dep.Version, "root", dep.Root)
		c.bs.Use(dep)
	}

	log.Info("configuring", "build_type", plan.BuildType, "shared", plan.Shared, "source", sourceDir)
	cfg := buildsys.Config{
		SourceDir:    sourceDir,
		BuildDir:     buildDir,
		BuildType:    plan.BuildType,
		Defines:      map[string]string{"CMAKE_BUILD_TYPE": plan.BuildType},
		BoolDefines:  plan.Defines(),
		InitialCache: caches,
		Verbose:      plan.Verbose,
	}
	if err := c.bs.Configure(ctx, cfg); err != nil {
		return nil, withOutput(phaseErrorf(ErrConfigure, PhaseConfigure, err, "build system rejected the configuration"), err)
	}

	h := &ConfiguredBuild{session: s, plan: plan, sourceDir: sourceDir, buildDir: buildDir}
	if err := h.transition(Configured); err != nil {
		return nil, phaseErrorf(ErrConfigure, PhaseConfigure, err, "")
	}
	return h, nil
}

// Build compiles the configured tree and then always runs its test
// suite. It succeeds only if both succeed.
func (c *Controller) Build(ctx context.Context, h *ConfiguredBuild) error {
	if h == nil {
		return phaseErrorf(ErrBuild, PhaseBuild, nil, "no configured build tree")
	}
	if h.state != Configured {
		return phaseErrorf(ErrBuild, PhaseBuild, nil, "build tree is %s, want %s", h.state, Configured)
	}
	log := c.logger.With("phase", PhaseBuild, "package", h.session.Identity().String())

	log.Info("building", "build_dir", h.buildDir)
	if err := c.bs.Build(ctx); err != nil {
		h.state = Failed
		return withOutput(phaseErrorf(ErrBuild, PhaseBuild, err, "compilation failed"), err)
	}

	log.Info("testing")
	report, err := c.bs.Test(ctx, buildsys.TestOptions{OutputOnFailure: true})
	if err != nil || !report.Passed() {
		h.state = Failed
		tf := &TestFailure{}
		if report != nil {
			tf.Total = report.Total
			tf.Failed = report.Failed
			tf.Output = report.Output
		}
		log.Error("tests failed", "failed", tf.Failed)
		pe := &PhaseError{Kind: ErrTestFailure, Phase: PhaseTest, Err: tf, Output: tf.Output}
		if err != nil {
			pe.Msg = err.Error()
			if pe.Output == "" {
				pe = withOutput(pe, err)
			}
		}
		return pe
	}
	return h.transition(Built)
}

// Package installs the built tree into the install directory, using the
// plan the tree was configured with.
func (c *Controller) Package(ctx context.Context, h *ConfiguredBuild) (*Artifacts, error) {
	if h == nil {
		return nil, phaseErrorf(ErrPackage, PhasePackage, nil, "no configured build tree")
	}
	if h.state != Built {
		return nil, phaseErrorf(ErrPackage, PhasePackage, nil, "build tree is %s, nothing to install", h.state)
	}
	if c.installDir == "" {
		return nil, phaseErrorf(ErrPackage, PhasePackage, nil, "no package output location")
	}
	log := c.logger.With("phase", PhasePackage, "package", h.session.Identity().String())

	if err := os.MkdirAll(c.installDir, 0o755); err != nil {
		return nil, phaseErrorf(ErrPackage, PhasePackage, err, "create package output location")
	}
	if err := fsutil.Writable(c.installDir); err != nil {
		return nil, phaseErrorf(ErrPackage, PhasePackage, err, "")
	}

	log.Info("installing", "prefix", c.installDir, "build_type", h.plan.BuildType)
	if err := c.bs.Install(ctx, c.installDir); err != nil {
		return nil, withOutput(phaseErrorf(ErrPackage, PhasePackage, err, "install failed"), err)
	}
	a, err := collectArtifacts(c.installDir)
	if err != nil {
		return nil, phaseErrorf(ErrPackage, PhasePackage, err, "list installed files")
	}
	if len(a.Files) == 0 {
		return nil, phaseErrorf(ErrPackage, PhasePackage, nil, "install produced no files in %s", c.installDir)
	}
	log.Info("packaged", "files", len(a.Files), "libraries", len(a.Libraries))
	return a, nil
}

// Run executes configure, build and package in order and stops at the
// first failure.
func (c *Controller) Run(ctx context.Context, s *Session) (*Artifacts, error) {
	h, err := c.Configure(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := c.Build(ctx, h); err != nil {
		return nil, err
	}
	return c.Package(ctx, h)
}

func withOutput(pe *PhaseError, err error) *PhaseError {
	var re *buildsys.RunError
	if errors.As(err, &re) {
		pe.Output = re.Output
	}
	return pe
}

var libraryExts = []string{".a", ".so", ".dylib", ".lib", ".dll"}

func collectArtifacts(dir string) (*Artifacts, error) {
	a := &Artifacts{Dir: dir}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		a.Files = append(a.Files, rel)

		base := d.Name()
		switch {
		case strings.HasPrefix(rel, "include/"):
			a.Headers = append(a.Headers, rel)
		case strings.HasSuffix(base, ".pc"),
			strings.HasSuffix(base, "Config.cmake"),
			strings.HasSuffix(base, "-config.cmake"),
			strings.HasSuffix(base, "ConfigVersion.cmake"),
			strings.HasSuffix(base, "-config-version.cmake"),
			strings.HasSuffix(base, "Targets.cmake"):
			a.Metadata = append(a.Metadata, rel)
		case isLibrary(base):
			a.Libraries = append(a.Libraries, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(a.Files)
	return a, nil
}

// isLibrary also matches versioned shared objects such as libfoo.so.1.0.0.
func isLibrary(name string) bool {
	for _, ext := range libraryExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return strings.Contains(name, ".so.")
}
