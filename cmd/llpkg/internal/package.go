package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/goplus/llpkg/internal/build"
	"github.com/goplus/llpkg/internal/env"
	"github.com/goplus/llpkg/pkgs/mod/module"
)

var (
	packageFlags  sessionFlags
	packageOutput string
	packageForce  bool
	packageStore  bool
)

var packageCmd = &cobra.Command{
	Use:   "package [recipe]",
	Short: "Build, test and package a recipe",
	Long: `Package runs the whole lifecycle of a recipe and records the
binary package in the workspace. A configuration that was already packaged
is reused unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPackage,
}

func init() {
	packageFlags.register(packageCmd.Flags())
	packageCmd.Flags().StringVar(&packageOutput, "output", "", "Export the package to a directory, .zip or .tar.zst file")
	packageCmd.Flags().BoolVar(&packageForce, "force", false, "Rebuild even if this configuration is already packaged")
	packageCmd.Flags().BoolVar(&packageStore, "install", false, "Install the package into the store as <name>@<version>")
	rootCmd.AddCommand(packageCmd)
}

func runPackage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	// Resolve the output path before any phase changes the tree.
	if packageOutput != "" {
		abs, err := filepath.Abs(packageOutput)
		if err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
		packageOutput = abs
	}

	j, err := packageFlags.open(ctx, args, logger)
	if err != nil {
		return err
	}
	install, err := j.workspace.InstallDir()
	if err != nil {
		return err
	}

	entry, ok, err := j.workspace.Lookup(j.source)
	if err != nil {
		return err
	}
	if ok && !packageForce {
		j.logger.Info("already packaged", "matrix", entry.Matrix, "source", entry.Source, "built", entry.BuildTime)
	} else if entry, err = buildPackage(ctx, j); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", j.session.Identity(), entry.Matrix)
	fmt.Fprintf(out, "  package id: %s\n", j.workspace.PackageID())
	fmt.Fprintf(out, "  location:   %s\n", install)
	for _, lib := range entry.Libraries {
		fmt.Fprintf(out, "  library:    %s\n", lib)
	}

	if packageStore {
		dest, err := installToStore(packageFlags.store, j.session.Identity().Name, j.session.Identity().Version, install)
		if err != nil {
			return fmt.Errorf("install into store: %w", err)
		}
		fmt.Fprintf(out, "  installed:  %s\n", dest)
	}
	if packageOutput != "" {
		if err := build.Export(install, packageOutput); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Fprintf(out, "  exported:   %s\n", packageOutput)
	}
	return nil
}

// buildPackage runs the whole lifecycle from a clean tree and records the
// result.
func buildPackage(ctx context.Context, j *job) (*build.Entry, error) {
	if err := j.workspace.Clean(); err != nil {
		return nil, err
	}
	if err := j.fetch(ctx); err != nil {
		return nil, err
	}
	ctrl, err := j.controller(ctx)
	if err != nil {
		return nil, err
	}
	artifacts, err := ctrl.Run(ctx, j.session)
	if err != nil {
		return nil, err
	}
	entry, err := j.workspace.Record(artifacts, j.source)
	if err != nil {
		return nil, fmt.Errorf("record package: %w", err)
	}
	return entry, nil
}

// installToStore replaces <store>/<name>@<version> with a copy of dir.
func installToStore(store, name, version, dir string) (string, error) {
	if store == "" {
		var err error
		if store, err = env.StoreDir(); err != nil {
			return "", err
		}
	}
	sub, err := module.Version{Name: name, Version: version}.Dir()
	if err != nil {
		return "", err
	}
	dest := filepath.Join(store, sub)
	if err := os.RemoveAll(dest); err != nil {
		return "", err
	}
	if err := build.Export(dir, dest); err != nil {
		return "", err
	}
	return dest, nil
}
