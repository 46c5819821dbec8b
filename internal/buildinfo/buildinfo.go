// Package buildinfo derives a human-readable version string for whatever
// binary links it, from the git repository it was built in. It backs
// engine.Options.CompilerVersion (spec §4.6 records CompilerVersion in every
// snapshot so Resume can refuse to load a snapshot written by an
// incompatible build) and the scriptlang-tool "version" subcommand.
package buildinfo

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// GetLastTag returns `git describe --tags` output: the most recent tag
// reachable from HEAD, with a "-<commits>-g<hash>" suffix when HEAD is past it.
func GetLastTag() (string, error) {
	cmd := exec.Command("git", "describe", "--tags")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("buildinfo: no git tags found: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// GetCommitCount returns the total number of commits reachable from HEAD,
// used as a monotonically increasing build number.
func GetCommitCount() (int, error) {
	cmd := exec.Command("git", "rev-list", "--count", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("buildinfo: commit count: %w", err)
	}
	count, err := strconv.Atoi(strings.TrimSpace(string(output)))
	if err != nil {
		return 0, fmt.Errorf("buildinfo: parse commit count: %w", err)
	}
	return count, nil
}

// ParseVersion extracts major.minor.patch from a tag like "v0.5.0-18".
func ParseVersion(tag string) (major, minor, patch int, err error) {
	trimmed := strings.TrimPrefix(tag, "v")
	trimmed = strings.Split(trimmed, "-")[0]

	parts := strings.Split(trimmed, ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("buildinfo: invalid version format %q", trimmed)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, err
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, err
	}
	patch, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, err
	}
	return major, minor, patch, nil
}

// Describe returns a CompilerVersion string of the form "v0.5.0+42", falling
// back to "v0.0.0+dev" outside a git checkout (e.g. a container build
// without a .git directory) rather than failing the caller.
func Describe() string {
	tag, err := GetLastTag()
	if err != nil {
		return "v0.0.0+dev"
	}
	major, minor, patch, err := ParseVersion(tag)
	if err != nil {
		return "v0.0.0+dev"
	}
	build, err := GetCommitCount()
	if err != nil {
		return fmt.Sprintf("v%d.%d.%d", major, minor, patch)
	}
	return fmt.Sprintf("v%d.%d.%d+%d", major, minor, patch, build)
}
