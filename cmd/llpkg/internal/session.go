package internal

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"

	"github.com/goplus/llpkg/internal/build"
	"github.com/goplus/llpkg/internal/deps"
	"github.com/goplus/llpkg/internal/env"
	"github.com/goplus/llpkg/internal/profile"
	"github.com/goplus/llpkg/internal/vcs"
	"github.com/goplus/llpkg/pkgs/buildsys"
	"github.com/goplus/llpkg/pkgs/buildsys/cmake"
	"github.com/goplus/llpkg/recipe"
	"github.com/goplus/llpkg/recipes/inotifycpp"
)

var recipes = map[string]func() *recipe.Recipe{
	inotifycpp.Name: inotifycpp.Recipe,
}

// sessionFlags are the flags shared by every command that opens a session.
type sessionFlags struct {
	settings  []string
	options   []string
	profile   string
	source    string
	recipeDir string
	store     string
	workspace string
	deps      []string
	cmakePath string
	ctestPath string
}

func (f *sessionFlags) register(fs *pflag.FlagSet) {
	fs.StringArrayVarP(&f.settings, "setting", "s", nil, "Setting value `key=value` (os, compiler, build_type, arch)")
	fs.StringArrayVarP(&f.options, "option", "o", nil, "Option value `name=value`")
	fs.StringVar(&f.profile, "profile", "", "Profile file (.yaml, .yml, .json or .jsonc)")
	fs.StringVar(&f.source, "source", "", "Use a local source tree instead of fetching it")
	fs.StringVar(&f.recipeDir, "recipe-dir", "", "Git checkout of the package to take automatic source URL and revision from")
	fs.StringVar(&f.store, "store", "", "Directory of installed dependencies (default $LLPKG_HOME/store)")
	fs.StringVar(&f.workspace, "workspace", "", "Workspace directory (default $LLPKG_HOME/workspace)")
	fs.StringArrayVar(&f.deps, "dep", nil, "Use the dependency installed at `name=dir`")
	fs.StringVar(&f.cmakePath, "cmake", "cmake", "cmake executable")
	fs.StringVar(&f.ctestPath, "ctest", "ctest", "ctest executable")
}

// lookupRecipe returns the recipe named by args, defaulting to the only
// registered one.
func lookupRecipe(args []string) (*recipe.Recipe, error) {
	name := inotifycpp.Name
	if len(args) > 0 {
		name = args[0]
	}
	newRecipe, ok := recipes[name]
	if !ok {
		return nil, fmt.Errorf("unknown recipe %q (available: %s)", name, strings.Join(slices.Sorted(maps.Keys(recipes)), ", "))
	}
	return newRecipe(), nil
}

// parseKV parses "key=value" arguments into a map. Later values win.
func parseKV(flag string, kvs []string) (map[string]string, error) {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid %s value %q: want key=value", flag, kv)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// newSession merges host defaults, the profile and the flags, in that
// order of precedence, into a session of r.
func (f *sessionFlags) newSession(r *recipe.Recipe) (*recipe.Session, error) {
	settings := recipe.DefaultSettings()
	options := map[string]string{}
	if f.profile != "" {
		p, err := profile.Load(f.profile)
		if err != nil {
			return nil, err
		}
		if settings, err = settings.With(p.Settings); err != nil {
			return nil, err
		}
		maps.Copy(options, p.Options)
	}
	flagSettings, err := parseKV("--setting", f.settings)
	if err != nil {
		return nil, err
	}
	if settings, err = settings.With(flagSettings); err != nil {
		return nil, err
	}
	flagOptions, err := parseKV("--option", f.options)
	if err != nil {
		return nil, err
	}
	maps.Copy(options, flagOptions)
	return r.NewSession(settings, options)
}

// resolver returns the dependency resolver: --dep entries first, then the
// store.
func (f *sessionFlags) resolver() (deps.Resolver, error) {
	fixed, err := parseKV("--dep", f.deps)
	if err != nil {
		return nil, err
	}
	store := f.store
	if store == "" {
		if store, err = env.StoreDir(); err != nil {
			return nil, err
		}
	}
	res := deps.Fixed{}
	for name, dir := range fixed {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		res[name] = buildsys.Dependency{Name: name, Root: abs}
	}
	return deps.Chain{res, deps.NewStore(store)}, nil
}

func (f *sessionFlags) workspaceDir() (string, error) {
	if f.workspace != "" {
		return filepath.Abs(f.workspace)
	}
	return env.WorkspaceDir()
}

// job is an opened session with its workspace and resolved source.
type job struct {
	flags     *sessionFlags
	session   *recipe.Session
	workspace *build.Workspace
	coord     recipe.SourceCoordinate
	source    string // resolved url@revision, or the local source tree
	logger    hclog.Logger
}

// open creates the session and its workspace and resolves where the
// sources come from. Nothing is fetched yet.
func (f *sessionFlags) open(ctx context.Context, args []string, logger hclog.Logger) (*job, error) {
	r, err := lookupRecipe(args)
	if err != nil {
		return nil, err
	}
	s, err := f.newSession(r)
	if err != nil {
		return nil, err
	}
	dir, err := f.workspaceDir()
	if err != nil {
		return nil, err
	}
	ws, err := build.NewWorkspace(dir, s)
	if err != nil {
		return nil, err
	}
	logger = logger.With("package", s.Identity().String(), "id", ws.PackageID())
	logger.Debug("session", "settings", s.Settings().String(), "options", s.Options().String())

	j := &job{flags: f, session: s, workspace: ws, coord: r.Source, logger: logger}
	if f.source != "" {
		if j.source, err = filepath.Abs(f.source); err != nil {
			return nil, err
		}
		return j, nil
	}
	recipeDir := f.recipeDir
	if recipeDir != "" {
		if recipeDir, err = filepath.Abs(recipeDir); err != nil {
			return nil, err
		}
	}
	if j.coord, err = vcs.NewGit().Resolve(ctx, r, recipeDir); err != nil {
		return nil, err
	}
	j.source = j.coord.URL + "@" + j.coord.Revision
	return j, nil
}

// fetch materializes the sources below the workspace source root.
func (j *job) fetch(ctx context.Context) error {
	var fetcher vcs.Fetcher = vcs.NewGit()
	if j.flags.source != "" {
		fetcher = vcs.Local{Dir: j.source}
		j.logger.Info("copying sources", "from", j.source)
	} else {
		j.logger.Info("fetching sources", "url", j.coord.URL, "revision", j.coord.Revision)
	}
	if _, err := fetcher.Fetch(ctx, j.coord, j.workspace.SourceRoot()); err != nil {
		return fmt.Errorf("fetch sources: %w", err)
	}
	return nil
}

// controller resolves the build requirements and returns a controller
// driving cmake in the workspace.
func (j *job) controller(ctx context.Context) (*recipe.Controller, error) {
	res, err := j.flags.resolver()
	if err != nil {
		return nil, err
	}
	resolved, err := deps.ResolveAll(ctx, res, j.session.Recipe())
	if err != nil {
		return nil, err
	}
	for _, d := range resolved {
		j.logger.Debug("dependency", "name", d.Name, "version", d.Version, "root", d.Root)
	}
	install, err := j.workspace.InstallDir()
	if err != nil {
		return nil, err
	}
	cmakeOpts := []cmake.Option{
		cmake.WithCMakePath(j.flags.cmakePath),
		cmake.WithCTestPath(j.flags.ctestPath),
		cmake.WithLogger(j.logger.Named("cmake")),
	}
	if verbose {
		cmakeOpts = append(cmakeOpts, cmake.WithOutput(os.Stderr))
	}
	return recipe.NewController(cmake.New(cmakeOpts...),
		recipe.WithSourceRoot(j.workspace.SourceRoot()),
		recipe.WithBuildDir(j.workspace.BuildDir()),
		recipe.WithInstallDir(install),
		recipe.WithDependencies(resolved...),
		recipe.WithLogger(j.logger.Named("recipe")),
	), nil
}
