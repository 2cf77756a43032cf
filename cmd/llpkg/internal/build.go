package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildFlags sessionFlags

var buildCmd = &cobra.Command{
	Use:   "build [recipe]",
	Short: "Configure, build and test a recipe",
	Long: `Build materializes the recipe's sources, resolves its build
requirements, configures the build tree and compiles it. The test suite
always runs after compilation; a failing test fails the build.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildFlags.register(buildCmd.Flags())
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	j, err := buildFlags.open(ctx, args, newLogger())
	if err != nil {
		return err
	}
	if err := j.fetch(ctx); err != nil {
		return err
	}
	ctrl, err := j.controller(ctx)
	if err != nil {
		return err
	}
	h, err := ctrl.Configure(ctx, j.session)
	if err != nil {
		return err
	}
	if err := ctrl.Build(ctx, h); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s built and tested (%s)\n", j.session.Identity(), h.BuildDir())
	return nil
}
