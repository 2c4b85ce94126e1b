package build

import (
	"fmt"
	"runtime"
	"strings"
)

// Target names a platform/architecture/linkage triple a binary is compiled
// for, e.g. "x86_64-unknown-linux-musl". Host marks the runner's native
// target, which needs no cross-compilation setup.
type Target struct {
	Triple string
	Host   bool
}

func (t Target) String() string {
	return t.Triple
}

// NeedsMuslTools reports whether the target links against musl and therefore
// needs the musl linker support package installed on the runner.
func (t Target) NeedsMuslTools() bool {
	return strings.Contains(t.Triple, "musl")
}

// Matrix builds the target list from the configured triples. Each entry is an
// independent unit of work; no state is shared between them during execution.
func Matrix(triples []string) []Target {
	targets := make([]Target, 0, len(triples))
	for _, triple := range triples {
		targets = append(targets, Target{Triple: triple})
	}
	return targets
}

// hostTriples maps GOOS/GOARCH pairs to rust target triples.
var hostTriples = map[string]string{
	"linux/amd64":  "x86_64-unknown-linux-gnu",
	"linux/arm64":  "aarch64-unknown-linux-gnu",
	"darwin/amd64": "x86_64-apple-darwin",
	"darwin/arm64": "aarch64-apple-darwin",
}

// HostTarget returns the runner's native target.
func HostTarget() (Target, error) {
	key := runtime.GOOS + "/" + runtime.GOARCH
	triple, ok := hostTriples[key]
	if !ok {
		return Target{}, fmt.Errorf("no known target triple for host platform %s", key)
	}
	return Target{Triple: triple, Host: true}, nil
}
