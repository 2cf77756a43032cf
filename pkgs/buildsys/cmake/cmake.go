package cmake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/goplus/llpkg/pkgs/buildsys"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake drives a CMake build tree with cmake and ctest.
type CMake struct {
	cmake  string
	ctest  string
	output io.Writer
	logger hclog.Logger

	sourceDir string
	buildDir  string
	buildType string
	verbose   bool
	defines   map[string]defineValue
	env       map[string]string
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// Option configures CMake.
type Option func(*CMake)

// WithCMakePath sets a custom cmake executable path.
func WithCMakePath(path string) Option {
	return func(c *CMake) { c.cmake = path }
}

// WithCTestPath sets a custom ctest executable path.
func WithCTestPath(path string) Option {
	return func(c *CMake) { c.ctest = path }
}

// WithOutput mirrors tool output to w as it is produced.
func WithOutput(w io.Writer) Option {
	return func(c *CMake) { c.output = w }
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(c *CMake) { c.logger = l }
}

// New returns a CMake driver.
func New(opts ...Option) *CMake {
	c := &CMake{
		cmake:   "cmake",
		ctest:   "ctest",
		logger:  hclog.NewNullLogger(),
		defines: map[string]defineValue{},
		env:     map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.defines[key] = defineValue{value: v, typeName: "BOOL"}
}

// Env sets an environment variable for every tool invocation.
func (c *CMake) Env(key, value string) {
	c.env[key] = value
}

// Use makes the headers, libraries and pkg-config files installed under
// dep.Root visible to CMake and the compilers.
func (c *CMake) Use(dep buildsys.Dependency) {
	root := dep.Root
	includeDir := filepath.Join(root, "include")
	libDir := filepath.Join(root, "lib")
	pkgconfigDir := filepath.Join(libDir, "pkgconfig")

	if isDir(pkgconfigDir) {
		c.prependPath("PKG_CONFIG_PATH", pkgconfigDir)
	}
	c.prependPath("CMAKE_PREFIX_PATH", root)
	if isDir(includeDir) {
		c.prependPath("CMAKE_INCLUDE_PATH", includeDir)
	}
	if isDir(libDir) {
		c.prependPath("CMAKE_LIBRARY_PATH", libDir)
	}

	if runtime.GOOS == "windows" {
		if isDir(includeDir) {
			c.prependPath("INCLUDE", includeDir)
		}
		if isDir(libDir) {
			c.prependPath("LIB", libDir)
		}
	} else {
		if isDir(includeDir) {
			c.appendFlag("CPPFLAGS", "-I"+includeDir)
		}
		if isDir(libDir) {
			c.appendFlag("LDFLAGS", "-L"+libDir)
		}
	}
}

// Configure runs "cmake -S <source> -B <build>" with the configured
// definitions.
func (c *CMake) Configure(ctx context.Context, cfg buildsys.Config) error {
	if _, err := os.Stat(filepath.Join(cfg.SourceDir, "CMakeLists.txt")); err != nil {
		return fmt.Errorf("cmake: no CMakeLists.txt in %s: %w", cfg.SourceDir, err)
	}
	c.sourceDir = cfg.SourceDir
	c.buildDir = cfg.BuildDir
	c.buildType = cfg.BuildType
	c.verbose = cfg.Verbose
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return err
	}
	for k, v := range cfg.Defines {
		c.Define(k, v)
	}
	for k, v := range cfg.BoolDefines {
		c.DefineBool(k, v)
	}
	if c.buildType != "" {
		c.Define("CMAKE_BUILD_TYPE", c.buildType)
	}

	var args []string
	for _, script := range cfg.InitialCache {
		args = append(args, "-C", script)
	}
	args = append(args, "-S", c.sourceDir, "-B", c.buildDir)
	args = append(args, c.definesArgs()...)
	_, err := c.run(ctx, "", c.cmake, args)
	return err
}

// Build runs "cmake --build <build>".
func (c *CMake) Build(ctx context.Context) error {
	if c.buildDir == "" {
		return fmt.Errorf("cmake: build tree is not configured")
	}
	args := []string{"--build", c.buildDir}
	if c.buildType != "" {
		args = append(args, "--config", c.buildType)
	}
	if c.verbose {
		args = append(args, "--verbose")
	}
	_, err := c.run(ctx, "", c.cmake, args)
	return err
}

// Test runs ctest in the build tree and parses its summary.
func (c *CMake) Test(ctx context.Context, opts buildsys.TestOptions) (*buildsys.TestReport, error) {
	if c.buildDir == "" {
		return nil, fmt.Errorf("cmake: build tree is not configured")
	}
	var args []string
	if c.buildType != "" {
		args = append(args, "-C", c.buildType)
	}
	if opts.OutputOnFailure {
		args = append(args, "--output-on-failure")
	}
	out, err := c.run(ctx, c.buildDir, c.ctest, args)
	report := parseCTest(out)
	return report, err
}

// Install runs "cmake --install <build> --prefix <prefix>".
func (c *CMake) Install(ctx context.Context, prefix string) error {
	if c.buildDir == "" {
		return fmt.Errorf("cmake: build tree is not configured")
	}
	args := []string{"--install", c.buildDir}
	if c.buildType != "" {
		args = append(args, "--config", c.buildType)
	}
	if prefix != "" {
		args = append(args, "--prefix", prefix)
	}
	_, err := c.run(ctx, "", c.cmake, args)
	return err
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		d := c.defines[k]
		args = append(args, "-D"+k+":"+d.typeName+"="+d.value)
	}
	return args
}

// run executes name and returns its combined output. On failure the
// output is carried in a *buildsys.RunError.
func (c *CMake) run(ctx context.Context, dir, name string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	var w io.Writer = &buf
	if c.output != nil {
		w = io.MultiWriter(&buf, c.output)
	}
	cmd.Stdout = w
	cmd.Stderr = w
	if len(c.env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), c.env)
	}
	c.logger.Debug("exec", "cmd", name, "args", args, "dir", dir)
	if err := cmd.Run(); err != nil {
		return buf.String(), &buildsys.RunError{Tool: filepath.Base(name), Args: args, Output: buf.String(), Err: err}
	}
	return buf.String(), nil
}

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// lookupEnv prefers values set on c over the process environment.
func (c *CMake) lookupEnv(key string) string {
	if v, ok := c.env[key]; ok {
		return v
	}
	return os.Getenv(key)
}

// prependPath prepends value to a PATH-style variable.
func (c *CMake) prependPath(key, value string) {
	if cur := c.lookupEnv(key); cur != "" {
		value += string(os.PathListSeparator) + cur
	}
	c.env[key] = value
}

// appendFlag appends a space-separated flag to a variable.
func (c *CMake) appendFlag(key, flag string) {
	if cur := c.lookupEnv(key); cur != "" {
		flag = cur + " " + flag
	}
	c.env[key] = flag
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
