package internal

import (
	"context"
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/goplus/llpkg/internal/logging"
)

var (
	verbose  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "llpkg",
	Short: "llpkg builds, tests and packages C/C++ libraries from recipes",
	Long: `llpkg drives the configure, build, test and package phases of a
package recipe through CMake and records the produced binary packages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show native build system output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error); defaults to $"+logging.LevelEnv)
}

func newLogger() hclog.Logger {
	level := logLevel
	if level == "" {
		level = logging.Level()
	}
	return logging.New("llpkg", level, os.Stderr)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		reportError(os.Stderr, err, verbose)
		os.Exit(1)
	}
}
