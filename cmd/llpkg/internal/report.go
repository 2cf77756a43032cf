package internal

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goplus/llpkg/recipe"
)

// reportError prints err and, for phase failures, the failing phase with
// its diagnostics. Tool output is skipped when it was already streamed.
func reportError(w io.Writer, err error, streamed bool) {
	fmt.Fprintf(w, "error: %v\n", err)
	var pe *recipe.PhaseError
	if !errors.As(err, &pe) {
		return
	}
	fmt.Fprintf(w, "failed phase: %s\n", pe.Phase)
	var tf *recipe.TestFailure
	if errors.As(err, &tf) && len(tf.Failed) > 0 {
		fmt.Fprintln(w, "failed tests:")
		for _, name := range tf.Failed {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	if out := strings.TrimSpace(pe.Output); out != "" && !streamed {
		fmt.Fprintf(w, "--- %s output ---\n%s\n", pe.Phase, out)
	}
}
