// Package main provides the relforge CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/relforge/relforge/internal/build"
	"github.com/relforge/relforge/internal/pipeline"
	"github.com/relforge/relforge/internal/release"
	"github.com/relforge/relforge/internal/retry"
	"github.com/relforge/relforge/internal/store"
	"github.com/relforge/relforge/pkg/config"
	"github.com/relforge/relforge/pkg/version"
)

var cliVersion = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "relforge",
		Short: "Tag-triggered cross-platform release pipeline",
		Long: `Relforge builds a cargo-based tool for a declared target matrix and
publishes the stripped, packaged binaries as one versioned release.`,
		Version: cliVersion,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newBuildCmd(),
		newPublishCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveProject locates the cargo project root, from the flag if given,
// otherwise by walking up from the working directory.
func resolveProject(projectPath string) (string, error) {
	if projectPath != "" {
		abs, err := filepath.Abs(projectPath)
		if err != nil {
			return "", fmt.Errorf("resolving project path: %w", err)
		}
		return config.FindProjectRoot(abs)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	return config.FindProjectRoot(cwd)
}

func loadConfig(projectRoot string) *config.Config {
	cfgFile := config.FindConfigFile(projectRoot)
	if cfgFile == "" {
		return config.DefaultConfig()
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

// newStore builds the artifact store selected by the config.
func newStore(ctx context.Context, projectRoot string, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "", "local":
		dir := cfg.Store.Dir
		if dir == "" {
			dir = filepath.Join(projectRoot, "target", "relforge-artifacts")
		}
		return store.NewLocal(dir), nil
	case "s3":
		return store.NewS3(ctx, store.S3Config{
			Bucket:    cfg.Store.Bucket,
			Region:    cfg.Store.Region,
			Endpoint:  cfg.Store.Endpoint,
			AccessKey: cfg.Store.AccessKey,
			SecretKey: cfg.Store.SecretKey,
		})
	case "gcs":
		return store.NewGCS(ctx, cfg.Store.Bucket)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// newToolchain builds the cargo toolchain for the project. The tool name
// falls back to the manifest's package name when the config does not set one.
func newToolchain(projectRoot string, cfg *config.Config) (*build.Cargo, string, error) {
	manifest := filepath.Join(projectRoot, cfg.Tool.Manifest)

	tool := cfg.Tool.Name
	if tool == "" {
		name, err := version.ResolveToolName(manifest)
		if err != nil {
			return nil, "", err
		}
		tool = name
	}

	return &build.Cargo{
		ProjectRoot: projectRoot,
		Tool:        tool,
		Timeout:     time.Duration(cfg.Tool.Timeout) * time.Second,
	}, manifest, nil
}

// newPipeline wires the full pipeline for a project. The token authenticates
// the release creation and is passed explicitly into the publisher; an empty
// token is only acceptable for commands that never publish. hostTriple
// overrides how the host matrix entry is named (see resolveHostTarget).
func newPipeline(ctx context.Context, projectRoot, token, hostTriple string, withHost bool) (*pipeline.Pipeline, error) {
	cfg := loadConfig(projectRoot)

	toolchain, manifest, err := newToolchain(projectRoot, cfg)
	if err != nil {
		return nil, err
	}

	st, err := newStore(ctx, projectRoot, cfg)
	if err != nil {
		return nil, err
	}

	targets := build.Matrix(cfg.Targets)
	if withHost {
		host, err := resolveHostTarget(cfg, hostTriple)
		if err != nil {
			return nil, err
		}
		targets = appendHost(targets, host)
	}

	var pub pipeline.Publisher
	if token != "" {
		pub = release.NewGitHubPublisher(cfg.Release.Owner, cfg.Release.Repo, token)
	}

	return &pipeline.Pipeline{
		Tool:      toolchain.Tool,
		Manifest:  manifest,
		Targets:   targets,
		Toolchain: toolchain,
		Store:     st,
		Publisher: pub,
		Retry:     retry.Policy{Attempts: cfg.Retry.Attempts},
	}, nil
}

// resolveHostTarget names the host matrix entry: the explicit flag wins,
// then the config's host_target, then the current platform. The platform
// fallback is only correct when builds and publish share one machine; a
// publish job on its own runner must be told which triple the host build
// deposited.
func resolveHostTarget(cfg *config.Config, override string) (build.Target, error) {
	if triple := firstNonEmpty(override, cfg.HostTarget); triple != "" {
		return build.Target{Triple: triple, Host: true}, nil
	}
	return build.HostTarget()
}

// appendHost adds the host target unless its triple is already in the matrix.
func appendHost(targets []build.Target, host build.Target) []build.Target {
	for i, target := range targets {
		if target.Triple == host.Triple {
			targets[i].Host = true
			return targets
		}
	}
	return append(targets, host)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
