package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relforge/relforge/pkg/version"
)

func newPublishCmd() *cobra.Command {
	var (
		projectPath string
		tag         string
		token       string
		hostTarget  string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the release from deposited artifacts",
		Long: `Regenerates the dependency lock snapshot, retrieves every matrix
archive from the artifact store, and creates one release with all of them
attached. Run only after every build job succeeded; in CI that gate is the
workflow's join dependency on the matrix jobs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), publishOpts{
				projectPath: projectPath,
				tag:         tag,
				token:       token,
				hostTarget:  hostTarget,
			})
		},
	}

	cmd.Flags().StringVar(&projectPath, "project", "", "Path to the cargo project (default: detect from cwd)")
	cmd.Flags().StringVar(&tag, "tag", "", "Triggering tag, v<major>.<minor>.<patch> (default: $GITHUB_REF_NAME)")
	cmd.Flags().StringVar(&token, "token", "", "Release credential (default: $GITHUB_TOKEN)")
	cmd.Flags().StringVar(&hostTarget, "host-target", "", "Triple the host build job deposited (default: host_target config, then this platform)")

	return cmd
}

type publishOpts struct {
	projectPath string
	tag         string
	token       string
	hostTarget  string
}

func runPublish(ctx context.Context, opts publishOpts) error {
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

	p, err := newPipeline(ctx, projectRoot, token, opts.hostTarget, true)
	if err != nil {
		return err
	}

	// Publish re-resolves the version; the names it expects in the store
	// only exist if every build job resolved the same value.
	ver, err := version.Resolve(p.Manifest)
	if err != nil {
		return fmt.Errorf("resolve version: %w", err)
	}
	if err := version.ValidateTag(tag, ver); err != nil {
		return fmt.Errorf("validate tag: %w", err)
	}

	rel, err := p.Publish(ctx, tag, ver)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Published %s: %s\n", rel.TagName, rel.HTMLURL)
	return nil
}
