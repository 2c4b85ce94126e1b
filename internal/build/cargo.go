package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Cargo is the Toolchain implementation for cargo-based projects.
type Cargo struct {
	ProjectRoot string
	Tool        string // binary name produced by the project
	CargoPath   string // defaults to "cargo"
	RustupPath  string // defaults to "rustup"
	StripPath   string // defaults to "strip"
	Timeout     time.Duration
}

func (c *Cargo) cargo() string {
	if c.CargoPath != "" {
		return c.CargoPath
	}
	return "cargo"
}

func (c *Cargo) rustup() string {
	if c.RustupPath != "" {
		return c.RustupPath
	}
	return "rustup"
}

func (c *Cargo) strip() string {
	if c.StripPath != "" {
		return c.StripPath
	}
	return "strip"
}

// run executes a tool in the project root, capturing output. stderr is folded
// into the returned error because cargo and rustup report diagnostics there.
func (c *Cargo) run(ctx context.Context, name string, args ...string) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = c.ProjectRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w\nstderr: %s", name, args, err, stderr.String())
	}
	return nil
}

// InstallTarget registers the cross-compilation target with rustup and, for
// musl targets, verifies the musl linker support the CI image must provide.
// The host target needs neither.
func (c *Cargo) InstallTarget(ctx context.Context, target Target) error {
	if target.Host {
		return nil
	}

	if target.NeedsMuslTools() {
		if _, err := exec.LookPath("musl-gcc"); err != nil {
			return fmt.Errorf("musl linker support missing for %s (install musl-tools): %w", target, err)
		}
	}

	if err := c.run(ctx, c.rustup(), "target", "add", target.Triple); err != nil {
		return fmt.Errorf("install target %s: %w", target, err)
	}
	return nil
}

// Build compiles the tool in release mode for the target. The host target
// builds into cargo's default output directory, cross targets into their
// per-triple directory; entries therefore never write to a shared path.
func (c *Cargo) Build(ctx context.Context, target Target) (string, error) {
	args := []string{"build", "--release"}
	if !target.Host {
		args = append(args, "--target", target.Triple)
	}

	if err := c.run(ctx, c.cargo(), args...); err != nil {
		return "", fmt.Errorf("build %s for %s: %w", c.Tool, target, err)
	}

	binary := c.BinaryPath(target)
	if _, err := os.Stat(binary); err != nil {
		return "", fmt.Errorf("build for %s produced no binary at %s: %w", target, binary, err)
	}
	return binary, nil
}

// BinaryPath returns where cargo places the release binary for a target.
func (c *Cargo) BinaryPath(target Target) string {
	if target.Host {
		return filepath.Join(c.ProjectRoot, "target", "release", c.Tool)
	}
	return filepath.Join(c.ProjectRoot, "target", target.Triple, "release", c.Tool)
}

// Strip removes debug symbols from the binary in place.
func (c *Cargo) Strip(ctx context.Context, binaryPath string) error {
	if err := c.run(ctx, c.strip(), binaryPath); err != nil {
		return fmt.Errorf("strip %s: %w", binaryPath, err)
	}
	return nil
}

// GenerateLockfile regenerates Cargo.lock from the manifest and returns its
// path.
func (c *Cargo) GenerateLockfile(ctx context.Context) (string, error) {
	if err := c.run(ctx, c.cargo(), "generate-lockfile"); err != nil {
		return "", fmt.Errorf("generate lockfile: %w", err)
	}

	lock := filepath.Join(c.ProjectRoot, "Cargo.lock")
	if _, err := os.Stat(lock); err != nil {
		return "", fmt.Errorf("lockfile not found after generation: %w", err)
	}
	return lock, nil
}
