package recipe

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds reported by the recipe lifecycle. Every error returned by
// this package matches exactly one of them with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrConfigure     = errors.New("configure failed")
	ErrBuild         = errors.New("build failed")
	ErrTestFailure   = errors.New("tests failed")
	ErrPackage       = errors.New("package failed")
)

// Phase names used in PhaseError.
const (
	PhaseSession   = "session"
	PhaseConfigure = "configure"
	PhaseBuild     = "build"
	PhaseTest      = "test"
	PhasePackage   = "package"
)

// PhaseError describes the failure of one lifecycle phase.
type PhaseError struct {
	Kind   error  // one of the Err* kinds above
	Phase  string // phase that failed
	Msg    string
	Err    error  // underlying cause, may be nil
	Output string // diagnostic output of the native build system, if any
}

func (e *PhaseError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Phase != "" {
		b.WriteString(e.Phase)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *PhaseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// TestFailure carries the per-test report of a failed test run.
type TestFailure struct {
	Total  int      // number of tests run, 0 if unknown
	Failed []string // names of failed tests, in report order
	Output string   // test output, as reported on failure
}

func (e *TestFailure) Error() string {
	if len(e.Failed) == 0 {
		return "test suite did not pass"
	}
	if e.Total > 0 {
		return fmt.Sprintf("%d of %d tests failed: %s", len(e.Failed), e.Total, strings.Join(e.Failed, ", "))
	}
	return fmt.Sprintf("%d tests failed: %s", len(e.Failed), strings.Join(e.Failed, ", "))
}

func (e *TestFailure) Is(target error) bool { return target == ErrTestFailure }

func configErrorf(format string, args ...any) error {
	return &PhaseError{Kind: ErrConfiguration, Phase: PhaseSession, Msg: fmt.Sprintf(format, args...)}
}

func phaseErrorf(kind error, phase string, cause error, format string, args ...any) *PhaseError {
	return &PhaseError{Kind: kind, Phase: phase, Msg: fmt.Sprintf(format, args...), Err: cause}
}
