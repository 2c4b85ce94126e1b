// Package pipeline orchestrates the release: one version resolution feeding
// every stage, parallel builds across the target matrix, a join barrier, and
// a single publish step gated on every build succeeding.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/relforge/relforge/internal/archive"
	"github.com/relforge/relforge/internal/build"
	"github.com/relforge/relforge/internal/release"
	"github.com/relforge/relforge/internal/retry"
	"github.com/relforge/relforge/internal/store"
	"github.com/relforge/relforge/pkg/version"
)

// Per-target job states. Cancelled marks entries torn down because a sibling
// failed, so the report names only the genuinely failing targets.
const (
	StatusPending   = "PENDING"
	StatusBuilding  = "BUILDING"
	StatusPackaged  = "PACKAGED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// Publisher abstracts the hosting platform's release API so the pipeline
// does not depend on a concrete implementation.
type Publisher interface {
	CreateRelease(ctx context.Context, tag, body string) (*release.Release, error)
	UploadAsset(ctx context.Context, releaseID int64, name string, data []byte) error
}

// Pipeline wires the release stages together.
type Pipeline struct {
	Tool      string
	Manifest  string // path to the project manifest
	Targets   []build.Target
	Toolchain build.Toolchain
	Store     store.Store
	Publisher Publisher
	Retry     retry.Policy
	WorkDir   string // scratch space for archives; defaults to the system temp dir
}

// TargetResult is one matrix entry's terminal state.
type TargetResult struct {
	Target  build.Target
	Status  string
	Archive string
	Err     error
}

// RunReport summarizes a pipeline run for the operator.
type RunReport struct {
	RunID      string
	Version    string
	Results    []TargetResult
	ReleaseURL string
}

// Run executes the whole pipeline for the triggering tag: resolve the version
// once, validate the tag against it, build every matrix entry in parallel,
// join, and publish. Any build failure blocks publication for the run; there
// is no partial release.
func (p *Pipeline) Run(ctx context.Context, tag string) (*RunReport, error) {
	runID := uuid.NewString()

	ver, err := version.Resolve(p.Manifest)
	if err != nil {
		return nil, fmt.Errorf("resolve version: %w", err)
	}
	if err := version.ValidateTag(tag, ver); err != nil {
		return nil, fmt.Errorf("validate tag: %w", err)
	}

	report := &RunReport{RunID: runID, Version: ver}
	report.Results = make([]TargetResult, len(p.Targets))
	for i, target := range p.Targets {
		report.Results[i] = TargetResult{Target: target, Status: StatusPending}
	}

	log.Printf("run %s: building %s v%s for %d targets", runID, p.Tool, ver, len(p.Targets))

	// Fan out one job per matrix entry. Each goroutine owns its result slot;
	// the store is the only shared resource, written once per job.
	g, gctx := errgroup.WithContext(ctx)
	for i := range p.Targets {
		result := &report.Results[i]
		g.Go(func() error {
			result.Status = StatusBuilding
			name, err := p.BuildTarget(gctx, ver, result.Target)
			if err != nil {
				result.Status = StatusFailed
				if errors.Is(err, context.Canceled) {
					result.Status = StatusCancelled
				}
				result.Err = err
				return fmt.Errorf("target %s: %w", result.Target, err)
			}
			result.Status = StatusPackaged
			result.Archive = name
			return nil
		})
	}

	// Join barrier: publish is enabled only after every build reached
	// terminal success.
	if err := g.Wait(); err != nil {
		log.Printf("run %s: build failed, release skipped: %v", runID, err)
		return report, err
	}

	rel, err := p.Publish(ctx, tag, ver)
	if err != nil {
		return report, err
	}
	report.ReleaseURL = rel.HTMLURL

	log.Printf("run %s: published %s with %d artifacts", runID, tag, 1+len(p.Targets))
	return report, nil
}

// BuildTarget runs one matrix entry: toolchain setup, release build, strip,
// package, deposit. It returns the deposited archive's name.
func (p *Pipeline) BuildTarget(ctx context.Context, ver string, target build.Target) (string, error) {
	if err := p.Retry.Do(ctx, "install target", func(ctx context.Context) error {
		return p.Toolchain.InstallTarget(ctx, target)
	}); err != nil {
		return "", err
	}

	// Compile and strip are attempt-once: their failures are never transient.
	binary, err := p.Toolchain.Build(ctx, target)
	if err != nil {
		return "", err
	}
	if err := p.Toolchain.Strip(ctx, binary); err != nil {
		return "", err
	}

	name := archive.Name(p.Tool, ver, target.Triple)
	scratch, err := os.MkdirTemp(p.WorkDir, "relforge-"+target.Triple+"-")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	archivePath := filepath.Join(scratch, name)
	if err := archive.Write(binary, archivePath); err != nil {
		return "", fmt.Errorf("package %s: %w", name, err)
	}

	data, err := os.ReadFile(archivePath)
	if err != nil {
		return "", fmt.Errorf("read archive: %w", err)
	}

	// The store key is the archive's own deterministic filename.
	if err := p.Retry.Do(ctx, "deposit artifact", func(ctx context.Context) error {
		return p.Store.Put(ctx, name, data)
	}); err != nil {
		return "", err
	}

	log.Printf("target %s: deposited %s (%d bytes)", target, name, len(data))
	return name, nil
}

// Publish creates the release: regenerate the lock snapshot, retrieve every
// archive from the store by its deterministic name, create the release
// object, and attach the lock file plus every archive. Callers must only
// invoke it after every build job succeeded.
func (p *Pipeline) Publish(ctx context.Context, tag, ver string) (*release.Release, error) {
	lockPath, err := p.Toolchain.GenerateLockfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("regenerate lock snapshot: %w", err)
	}
	lockData, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, fmt.Errorf("read lock snapshot: %w", err)
	}

	// Cross-check the store against the expected artifact set before any
	// release object is created: every matrix archive must be deposited,
	// and nothing else may sit under this run's name prefix.
	expected := make(map[string]bool, len(p.Targets))
	names := make([]string, 0, len(p.Targets))
	for _, target := range p.Targets {
		name := archive.Name(p.Tool, ver, target.Triple)
		expected[name] = true
		names = append(names, name)
	}

	prefix := fmt.Sprintf("%s-v%s-", p.Tool, ver)
	deposited, err := p.Store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	depositedSet := make(map[string]bool, len(deposited))
	for _, name := range deposited {
		depositedSet[name] = true
	}

	var missing, extra []string
	for _, name := range names {
		if !depositedSet[name] {
			missing = append(missing, name)
		}
	}
	for _, name := range deposited {
		if !expected[name] {
			extra = append(extra, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("artifacts missing from store: %s", strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		return nil, fmt.Errorf("unexpected artifacts in store: %s", strings.Join(extra, ", "))
	}

	archives := make(map[string][]byte, len(p.Targets))
	for _, name := range names {
		data, err := p.Store.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("retrieve artifact %s: %w", name, err)
		}
		archives[name] = data
	}

	var rel *release.Release
	if err := p.Retry.Do(ctx, "create release", func(ctx context.Context) error {
		r, err := p.Publisher.CreateRelease(ctx, tag, releaseBody(p.Tool, names))
		if err != nil {
			if errors.Is(err, release.ErrReleaseExists) || errors.Is(err, release.ErrUnauthorized) {
				return retry.Permanent(err)
			}
			return err
		}
		rel = r
		return nil
	}); err != nil {
		return nil, err
	}

	lockName := filepath.Base(lockPath)
	if err := p.uploadAsset(ctx, rel.ID, lockName, lockData); err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := p.uploadAsset(ctx, rel.ID, name, archives[name]); err != nil {
			return nil, err
		}
	}

	return rel, nil
}

func (p *Pipeline) uploadAsset(ctx context.Context, releaseID int64, name string, data []byte) error {
	return p.Retry.Do(ctx, "upload "+name, func(ctx context.Context) error {
		err := p.Publisher.UploadAsset(ctx, releaseID, name, data)
		if err != nil && errors.Is(err, release.ErrUnauthorized) {
			return retry.Permanent(err)
		}
		return err
	})
}

func releaseBody(tool string, archiveNames []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prebuilt %s binaries:\n", tool)
	for _, name := range archiveNames {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return b.String()
}
