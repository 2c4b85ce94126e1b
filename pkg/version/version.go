// Package version resolves the release version from project metadata.
//
// The version is always read from the cargo manifest, never from the
// triggering tag: the tag only names the release, the manifest defines it.
// The pipeline resolves the version once and passes it to every stage, and
// ValidateTag fails fast when the tag and the manifest disagree.
package version

import (
	"fmt"
	"os"
	"regexp"

	"github.com/pelletier/go-toml/v2"
)

// tagPattern is the shape of a triggering tag: v<major>.<minor>.<patch>.
var tagPattern = regexp.MustCompile(`^v(\d+)\.(\d+)\.(\d+)$`)

// manifest mirrors the subset of Cargo.toml the resolver needs.
type manifest struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
}

// Resolve reads the package version from the manifest at the given path.
func Resolve(manifestPath string) (string, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", fmt.Errorf("reading manifest: %w", err)
	}

	var m manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("parsing manifest: %w", err)
	}

	if m.Package.Version == "" {
		return "", fmt.Errorf("manifest %s has no package version", manifestPath)
	}
	return m.Package.Version, nil
}

// ResolveToolName reads the package name from the manifest. Used as the tool
// name when the config does not set one.
func ResolveToolName(manifestPath string) (string, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", fmt.Errorf("reading manifest: %w", err)
	}

	var m manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("parsing manifest: %w", err)
	}

	if m.Package.Name == "" {
		return "", fmt.Errorf("manifest %s has no package name", manifestPath)
	}
	return m.Package.Name, nil
}

// CheckTag verifies that a tag matches the v<major>.<minor>.<patch> pattern.
func CheckTag(tag string) error {
	if !tagPattern.MatchString(tag) {
		return fmt.Errorf("tag %q does not match v<major>.<minor>.<patch>", tag)
	}
	return nil
}

// ValidateTag checks that the triggering tag names exactly the resolved
// version. A mismatch means the manifest was not bumped before tagging; the
// pipeline must stop before any build runs, otherwise the release would be
// named after a version no artifact was built for.
func ValidateTag(tag, version string) error {
	if err := CheckTag(tag); err != nil {
		return err
	}
	if tag != "v"+version {
		return fmt.Errorf("tag %s does not match manifest version %s", tag, version)
	}
	return nil
}
