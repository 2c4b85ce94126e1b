package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relforge/relforge/internal/build"
	"github.com/relforge/relforge/pkg/version"
)

func newBuildCmd() *cobra.Command {
	var (
		projectPath string
		target      string
		tag         string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build, package, and deposit one matrix target",
		Long: `Runs a single matrix entry: installs toolchain support for the target,
compiles the tool in release mode, strips it, packages it, and deposits the
archive in the artifact store. Intended to run once per CI matrix job.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), buildOpts{
				projectPath: projectPath,
				target:      target,
				tag:         tag,
			})
		},
	}

	cmd.Flags().StringVar(&projectPath, "project", "", "Path to the cargo project (default: detect from cwd)")
	cmd.Flags().StringVar(&target, "target", "host", "Target triple to build, or \"host\"")
	cmd.Flags().StringVar(&tag, "tag", "", "Triggering tag to validate against (default: $GITHUB_REF_NAME)")

	return cmd
}

type buildOpts struct {
	projectPath string
	target      string
	tag         string
}

func runBuild(ctx context.Context, opts buildOpts) error {
	projectRoot, err := resolveProject(opts.projectPath)
	if err != nil {
		return err
	}

	p, err := newPipeline(ctx, projectRoot, "", "", false)
	if err != nil {
		return err
	}

	target := build.Target{Triple: opts.target}
	if opts.target == "host" {
		target, err = build.HostTarget()
		if err != nil {
			return err
		}
	}

	ver, err := version.Resolve(p.Manifest)
	if err != nil {
		return fmt.Errorf("resolve version: %w", err)
	}
	if tag := firstNonEmpty(opts.tag, os.Getenv("GITHUB_REF_NAME")); tag != "" {
		if err := version.ValidateTag(tag, ver); err != nil {
			return fmt.Errorf("validate tag: %w", err)
		}
	}

	name, err := p.BuildTarget(ctx, ver, target)
	if err != nil {
		return fmt.Errorf("target %s: %w", target, err)
	}

	fmt.Fprintf(os.Stderr, "Deposited %s\n", name)
	return nil
}
