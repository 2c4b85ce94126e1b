package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relforge/relforge/internal/pipeline"
)

func newRunCmd() *cobra.Command {
	var (
		projectPath string
		tag         string
		token       string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the whole release pipeline in-process",
		Long: `Builds every matrix target plus the host target in parallel, waits for
all of them, and publishes one release with every archive and the lock
snapshot attached. Any build failure skips the publish entirely.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), runOpts{
				projectPath: projectPath,
				tag:         tag,
				token:       token,
			})
		},
	}

	cmd.Flags().StringVar(&projectPath, "project", "", "Path to the cargo project (default: detect from cwd)")
	cmd.Flags().StringVar(&tag, "tag", "", "Triggering tag, v<major>.<minor>.<patch> (default: $GITHUB_REF_NAME)")
	cmd.Flags().StringVar(&token, "token", "", "Release credential (default: $GITHUB_TOKEN)")

	return cmd
}

type runOpts struct {
	projectPath string
	tag         string
	token       string
}

func runRun(ctx context.Context, opts runOpts) error {
	projectRoot, err := resolveProject(opts.projectPath)
	if err != nil {
		return err
	}

	tag := firstNonEmpty(opts.tag, os.Getenv("GITHUB_REF_NAME"))
	if tag == "" {
		return fmt.Errorf("no tag: pass --tag or set GITHUB_REF_NAME")
	}
	token := firstNonEmpty(opts.token, os.Getenv("GITHUB_TOKEN"))
	if token == "" {
		return fmt.Errorf("no release credential: pass --token or set GITHUB_TOKEN")
	}

	p, err := newPipeline(ctx, projectRoot, token, "", true)
	if err != nil {
		return err
	}

	report, err := p.Run(ctx, tag)
	if report != nil {
		printReport(report)
	}
	return err
}

func printReport(report *pipeline.RunReport) {
	fmt.Fprintf(os.Stderr, "Run %s (version %s)\n", report.RunID, report.Version)
	for _, result := range report.Results {
		if result.Err != nil {
			fmt.Fprintf(os.Stderr, "  %-40s %s: %v\n", result.Target, result.Status, result.Err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %-40s %s\n", result.Target, result.Status)
	}
	if report.ReleaseURL != "" {
		fmt.Fprintf(os.Stderr, "Release: %s\n", report.ReleaseURL)
	}
}
