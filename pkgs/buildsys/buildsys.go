package buildsys

import (
	"context"
	"fmt"
	"strings"
)

// Dependency is a resolved, already-installed dependency whose headers
// and libraries must be visible to the build.
type Dependency struct {
	Name    string
	Version string
	Root    string // install prefix containing include/, lib/, ...
}

// Config is what a build system needs to configure a build tree.
type Config struct {
	SourceDir    string
	BuildDir     string
	BuildType    string
	Defines      map[string]string // string-typed definitions
	BoolDefines  map[string]bool
	InitialCache []string // scripts preloaded into the build system cache
	Verbose      bool
}

// TestOptions controls a test run.
type TestOptions struct {
	OutputOnFailure bool
}

// TestReport is the outcome of a test run.
type TestReport struct {
	Total  int
	Failed []string
	Output string
}

// Passed reports whether no test failed.
func (r *TestReport) Passed() bool {
	return r != nil && len(r.Failed) == 0
}

// BuildSystem captures the lifecycle of a native build system (CMake,
// ...). A BuildSystem drives exactly one build tree, set by Configure.
type BuildSystem interface {
	// Use makes a built dependency visible to the build.
	Use(dep Dependency)

	Configure(ctx context.Context, cfg Config) error
	Build(ctx context.Context) error
	// Test runs the test suite. A non-nil report is returned whenever
	// the suite ran, even if it failed.
	Test(ctx context.Context, opts TestOptions) (*TestReport, error)
	Install(ctx context.Context, prefix string) error
}

// RunError is returned when a build tool exits unsuccessfully. Output
// holds what the tool printed.
type RunError struct {
	Tool   string
	Args   []string
	Output string
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Tool, strings.Join(e.Args, " "), e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
