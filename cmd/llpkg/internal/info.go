package internal

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goplus/llpkg/internal/build"
	"github.com/goplus/llpkg/recipe"
)

var infoFlags sessionFlags

var infoCmd = &cobra.Command{
	Use:   "info [recipe]",
	Short: "Show a recipe and the plan derived for a configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInfo,
}

func init() {
	infoFlags.register(infoCmd.Flags())
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	r, err := lookupRecipe(args)
	if err != nil {
		return err
	}
	s, err := infoFlags.newSession(r)
	if err != nil {
		return err
	}
	return printInfo(cmd.OutOrStdout(), s)
}

func printInfo(w io.Writer, s *recipe.Session) error {
	plan, err := s.Plan(true)
	if err != nil {
		return err
	}
	r := s.Recipe()
	id := r.Identity
	fmt.Fprintf(w, "%s\n", id)
	if id.Description != "" {
		fmt.Fprintf(w, "  description: %s\n", id.Description)
	}
	if id.Author != "" {
		fmt.Fprintf(w, "  author:      %s\n", id.Author)
	}
	if id.URL != "" {
		fmt.Fprintf(w, "  url:         %s\n", id.URL)
	}
	fmt.Fprintf(w, "  settings:    %s\n", strings.Join(r.Settings, ", "))
	for _, name := range s.Options().Names() {
		v, _ := s.Options().Get(name)
		fmt.Fprintf(w, "  option:      %s=%s (one of %s)\n", name, v, strings.Join(r.Options[name].Domain, ", "))
	}
	for _, req := range r.BuildRequires {
		fmt.Fprintf(w, "  requires:    %s\n", req)
	}
	src := r.Source
	fmt.Fprintf(w, "  source:      %s %s@%s -> %s\n", src.Kind, src.URL, src.Revision, src.Subfolder)
	fmt.Fprintf(w, "  generators:  %s\n", strings.Join(r.Generators, ", "))

	fmt.Fprintf(w, "configuration %s\n", build.Matrix(s.Settings(), s.Options()))
	fmt.Fprintf(w, "  package id:  %s\n", build.PackageID(s.Settings(), s.Options()))
	fmt.Fprintf(w, "  build type:  %s\n", plan.BuildType)
	fmt.Fprintf(w, "  shared:      %t\n", plan.Shared)
	fmt.Fprintf(w, "  static:      %t\n", plan.Static)
	fmt.Fprintf(w, "  source dir:  %s\n", plan.SourceFolder)
	return nil
}
