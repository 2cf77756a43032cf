// Package logging builds the hclog loggers used across llpkg.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// LevelEnv selects the default log level.
const LevelEnv = "LLPKG_LOG_LEVEL"

// New creates a logger writing to w, or to stderr when w is nil. Setting
// LLPKG_JSON_LOG=1 switches to JSON output.
func New(name, level string, w io.Writer) hclog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: os.Getenv("LLPKG_JSON_LOG") == "1",
		Output:     w,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// Level returns the level named by LLPKG_LOG_LEVEL, defaulting to warn.
func Level() string {
	if level := os.Getenv(LevelEnv); level != "" {
		return level
	}
	return "warn"
}
