package main

import (
	"testing"

	"github.com/relforge/relforge/internal/build"
	"github.com/relforge/relforge/pkg/config"
)

func TestRunCmdFlags(t *testing.T) {
	cmd := newRunCmd()
	f := cmd.Flags()

	for _, flag := range []string{"project", "tag", "token"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestBuildCmdFlags(t *testing.T) {
	cmd := newBuildCmd()
	f := cmd.Flags()

	target, _ := f.GetString("target")
	if target != "host" {
		t.Errorf("default target = %q, want host", target)
	}

	for _, flag := range []string{"project", "target", "tag"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestPublishCmdFlags(t *testing.T) {
	cmd := newPublishCmd()
	f := cmd.Flags()

	for _, flag := range []string{"project", "tag", "token", "host-target"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestResolveHostTarget(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.HostTarget = "x86_64-apple-darwin"

	t.Run("flag override wins", func(t *testing.T) {
		got, err := resolveHostTarget(cfg, "aarch64-apple-darwin")
		if err != nil {
			t.Fatalf("resolveHostTarget: %v", err)
		}
		if got.Triple != "aarch64-apple-darwin" || !got.Host {
			t.Errorf("resolveHostTarget = %+v, want override triple marked host", got)
		}
	})

	t.Run("config host_target", func(t *testing.T) {
		// The publish runner's own platform must not leak in: the expected
		// archive is the one the host build job deposited.
		got, err := resolveHostTarget(cfg, "")
		if err != nil {
			t.Fatalf("resolveHostTarget: %v", err)
		}
		if got.Triple != "x86_64-apple-darwin" || !got.Host {
			t.Errorf("resolveHostTarget = %+v, want config triple marked host", got)
		}
	})

	t.Run("platform fallback", func(t *testing.T) {
		got, err := resolveHostTarget(config.DefaultConfig(), "")
		if err != nil {
			t.Skipf("no triple mapping for this platform: %v", err)
		}
		if got.Triple == "" || !got.Host {
			t.Errorf("resolveHostTarget = %+v, want platform host target", got)
		}
	})
}

func TestAppendHost(t *testing.T) {
	host := build.Target{Triple: "x86_64-unknown-linux-gnu", Host: true}

	t.Run("host already in matrix", func(t *testing.T) {
		targets := build.Matrix([]string{"x86_64-unknown-linux-gnu", "x86_64-apple-darwin"})
		got := appendHost(targets, host)
		if len(got) != 2 {
			t.Fatalf("expected 2 targets, got %d", len(got))
		}
		if !got[0].Host {
			t.Error("matching matrix entry should be marked host")
		}
	})

	t.Run("host added", func(t *testing.T) {
		targets := build.Matrix([]string{"x86_64-apple-darwin"})
		got := appendHost(targets, host)
		if len(got) != 2 {
			t.Fatalf("expected 2 targets, got %d", len(got))
		}
		if !got[1].Host || got[1].Triple != host.Triple {
			t.Errorf("appended target = %+v, want host", got[1])
		}
	})
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "a", "b"); got != "a" {
		t.Errorf("firstNonEmpty = %q, want a", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("firstNonEmpty = %q, want empty", got)
	}
}
