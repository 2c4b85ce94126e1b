// Package store is the shared artifact store between build jobs and the
// release publisher. Each producer writes exactly one archive under the
// archive's own deterministic filename; keys are never shared constants, so
// deposits from different targets can never collapse into one bundle.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store abstracts blob storage for release artifacts.
type Store interface {
	// Put deposits an artifact under its name. Each name has exactly one
	// producer per pipeline run.
	Put(ctx context.Context, name string, data []byte) error

	// Get retrieves an artifact by its deterministic name.
	Get(ctx context.Context, name string) ([]byte, error)

	// List returns the names of all deposited artifacts with the prefix,
	// sorted lexicographically.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Local implements Store using the local filesystem. Used for development
// and for in-process pipeline runs on a single machine.
type Local struct {
	BaseDir string
}

// NewLocal creates a Local store rooted at the given directory.
func NewLocal(baseDir string) *Local {
	return &Local{BaseDir: baseDir}
}

func (s *Local) path(name string) string {
	return filepath.Join(s.BaseDir, name)
}

// Put stores an artifact blob.
func (s *Local) Put(ctx context.Context, name string, data []byte) error {
	path := s.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Get retrieves an artifact blob.
func (s *Local) Get(ctx context.Context, name string) ([]byte, error) {
	return os.ReadFile(s.path(name))
}

// List returns deposited artifact names matching the prefix.
func (s *Local) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
