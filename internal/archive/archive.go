// Package archive packages a stripped binary into its release archive.
//
// Archive names are a pure function of (tool, version, target), so every
// producer and the publisher agree on them without coordination, and names
// are pairwise distinct across the target matrix.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Name returns the deterministic archive name for a (version, target) pair:
// <tool>-v<version>-<triple>.tar.gz.
func Name(tool, version, triple string) string {
	return fmt.Sprintf("%s-v%s-%s.tar.gz", tool, version, triple)
}

// Write compresses the binary at binaryPath into a gzipped tar at outPath.
// The archive holds exactly one entry: the binary at its bare filename.
// Entry metadata is fixed so identical binaries produce identical archives.
func Write(binaryPath, outPath string) error {
	src, err := os.Open(binaryPath)
	if err != nil {
		return fmt.Errorf("open binary: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat binary: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	hdr := &tar.Header{
		Name:    filepath.Base(binaryPath),
		Mode:    0o755,
		Size:    info.Size(),
		ModTime: time.Unix(0, 0),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write tar header: %w", err)
	}
	if _, err := io.Copy(tw, src); err != nil {
		return fmt.Errorf("write tar entry: %w", err)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return out.Close()
}
