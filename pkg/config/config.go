// Package config handles loading and managing relforge configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for relforge.
type Config struct {
	Tool    ToolConfig    `yaml:"tool"`
	Targets []string      `yaml:"targets"`
	Store   StoreConfig   `yaml:"store"`
	Release ReleaseConfig `yaml:"release"`
	Retry   RetryConfig   `yaml:"retry"`

	// HostTarget is the triple the host build job produces. Publish jobs on
	// a different platform need it to know which archive to expect; when
	// empty, the current platform's triple is used.
	HostTarget string `yaml:"host_target"`
}

// ToolConfig describes the tool being built and released.
type ToolConfig struct {
	Name     string `yaml:"name"`
	Manifest string `yaml:"manifest"` // path to Cargo.toml, relative to project root
	Timeout  int    `yaml:"timeout"`  // per-build timeout, seconds
}

// StoreConfig selects and configures the artifact store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "local", "s3", or "gcs"
	Dir     string `yaml:"dir"`     // local backend root

	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// ReleaseConfig identifies the repository releases are published to.
type ReleaseConfig struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
}

// RetryConfig bounds retries of externally-facing operations.
type RetryConfig struct {
	Attempts int `yaml:"attempts"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Tool: ToolConfig{
			Manifest: "Cargo.toml",
			Timeout:  1800,
		},
		Targets: []string{
			"x86_64-unknown-linux-gnu",
			"x86_64-unknown-linux-musl",
			"x86_64-apple-darwin",
		},
		Store: StoreConfig{
			Backend: "local",
		},
		Retry: RetryConfig{
			Attempts: 3,
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// FindConfigFile looks for .relforge.yaml in the given directory and its
// parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".relforge.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// FindProjectRoot walks up from dir looking for a Cargo.toml manifest.
func FindProjectRoot(dir string) (string, error) {
	for {
		candidate := filepath.Join(dir, "Cargo.toml")
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("no cargo project found (looked for Cargo.toml)")
}
