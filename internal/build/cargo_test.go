package build

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// writeScript creates an executable shell script standing in for a toolchain
// binary.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}

func TestCargoBinaryPath(t *testing.T) {
	c := &Cargo{ProjectRoot: "/work/proj", Tool: "mdbook-katex"}

	host := c.BinaryPath(Target{Triple: "x86_64-unknown-linux-gnu", Host: true})
	want := filepath.Join("/work/proj", "target", "release", "mdbook-katex")
	if host != want {
		t.Errorf("host BinaryPath = %q, want %q", host, want)
	}

	cross := c.BinaryPath(Target{Triple: "x86_64-apple-darwin"})
	want = filepath.Join("/work/proj", "target", "x86_64-apple-darwin", "release", "mdbook-katex")
	if cross != want {
		t.Errorf("cross BinaryPath = %q, want %q", cross, want)
	}
}

func TestCargoBuild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}

	root := t.TempDir()
	bin := t.TempDir()
	target := Target{Triple: "x86_64-unknown-linux-gnu"}

	// Fake cargo that creates the expected release binary.
	outDir := filepath.Join(root, "target", target.Triple, "release")
	cargo := writeScript(t, bin, "cargo",
		"mkdir -p "+outDir+" && printf binary > "+filepath.Join(outDir, "tool"))

	c := &Cargo{ProjectRoot: root, Tool: "tool", CargoPath: cargo}

	binary, err := c.Build(context.Background(), target)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if binary != filepath.Join(outDir, "tool") {
		t.Errorf("Build returned %q, want %q", binary, filepath.Join(outDir, "tool"))
	}
}

func TestCargoBuildFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}

	root := t.TempDir()
	bin := t.TempDir()
	cargo := writeScript(t, bin, "cargo", "echo 'error[E0432]: unresolved import' >&2; exit 101")

	c := &Cargo{ProjectRoot: root, Tool: "tool", CargoPath: cargo}

	_, err := c.Build(context.Background(), Target{Triple: "x86_64-unknown-linux-gnu"})
	if err == nil {
		t.Fatal("expected error from failing cargo, got nil")
	}
	if !strings.Contains(err.Error(), "E0432") {
		t.Errorf("error should carry compiler stderr, got: %v", err)
	}
}

func TestCargoBuildMissingBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}

	root := t.TempDir()
	bin := t.TempDir()
	// cargo exits 0 but produces nothing
	cargo := writeScript(t, bin, "cargo", "exit 0")

	c := &Cargo{ProjectRoot: root, Tool: "tool", CargoPath: cargo}

	if _, err := c.Build(context.Background(), Target{Triple: "x86_64-apple-darwin"}); err == nil {
		t.Fatal("expected error for missing binary, got nil")
	}
}

func TestCargoInstallTarget(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}

	root := t.TempDir()
	bin := t.TempDir()
	marker := filepath.Join(root, "rustup-called")
	rustup := writeScript(t, bin, "rustup", "echo \"$@\" > "+marker)

	c := &Cargo{ProjectRoot: root, Tool: "tool", RustupPath: rustup}

	// Host target: no toolchain work at all.
	if err := c.InstallTarget(context.Background(), Target{Triple: "x86_64-unknown-linux-gnu", Host: true}); err != nil {
		t.Fatalf("InstallTarget(host): %v", err)
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("rustup should not run for the host target")
	}

	// Cross target: rustup target add.
	if err := c.InstallTarget(context.Background(), Target{Triple: "x86_64-apple-darwin"}); err != nil {
		t.Fatalf("InstallTarget(cross): %v", err)
	}
	got, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("rustup was not invoked: %v", err)
	}
	if strings.TrimSpace(string(got)) != "target add x86_64-apple-darwin" {
		t.Errorf("rustup args = %q, want %q", strings.TrimSpace(string(got)), "target add x86_64-apple-darwin")
	}
}

func TestCargoInstallTargetMuslMissing(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}

	// Empty PATH: musl-gcc cannot be found.
	t.Setenv("PATH", t.TempDir())

	c := &Cargo{ProjectRoot: t.TempDir(), Tool: "tool"}
	err := c.InstallTarget(context.Background(), Target{Triple: "x86_64-unknown-linux-musl"})
	if err == nil {
		t.Fatal("expected error when musl-gcc is missing")
	}
	if !strings.Contains(err.Error(), "musl") {
		t.Errorf("error should name the missing musl support, got: %v", err)
	}
}

func TestCargoGenerateLockfile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}

	root := t.TempDir()
	bin := t.TempDir()
	lock := filepath.Join(root, "Cargo.lock")
	cargo := writeScript(t, bin, "cargo", "printf '[[package]]' > "+lock)

	c := &Cargo{ProjectRoot: root, Tool: "tool", CargoPath: cargo}

	got, err := c.GenerateLockfile(context.Background())
	if err != nil {
		t.Fatalf("GenerateLockfile: %v", err)
	}
	if got != lock {
		t.Errorf("GenerateLockfile = %q, want %q", got, lock)
	}
}
