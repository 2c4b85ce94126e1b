// Package build runs the per-target build jobs: toolchain setup, release
// compilation, and symbol stripping. The compiler toolchain itself is an
// external collaborator reached only through the Toolchain interface.
package build

import "context"

// Toolchain abstracts the compiler toolchain that turns source into a
// platform binary. Implementations shell out to the real tools; tests use
// fakes.
type Toolchain interface {
	// InstallTarget prepares toolchain support for the target: registering
	// the cross-compilation target and verifying linkage prerequisites.
	InstallTarget(ctx context.Context, target Target) error

	// Build compiles the tool in release mode for the target and returns the
	// path to the produced binary.
	Build(ctx context.Context, target Target) (string, error)

	// Strip removes debug symbols from the binary in place.
	Strip(ctx context.Context, binaryPath string) error

	// GenerateLockfile regenerates the dependency lock snapshot from project
	// metadata and returns its path.
	GenerateLockfile(ctx context.Context) (string, error)
}
