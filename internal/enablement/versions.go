// SPDX-License-Identifier: MPL-2.0

package enablement

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/avocado-linux/avocadoctl/internal/release"

	"github.com/Masterminds/semver/v3"
)

const (
	// DefaultVersion is used when the OS release has no VERSION_ID.
	DefaultVersion = "default"

	versionIDKey = "VERSION_ID"
)

// RuntimeVersion is one version directory and its enabled extensions.
type RuntimeVersion struct {
	Version    string   `json:"version" yaml:"version"`
	Extensions []string `json:"extensions" yaml:"extensions"`
}

// Versions lists the runtime versions in ascending semantic version order.
// Names that are not semantic versions follow, alphabetically.
func (m *Manager) Versions() ([]RuntimeVersion, error) {
	entries, err := os.ReadDir(m.RuntimeDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runtime directory: %w", err)
	}

	var versions []RuntimeVersion
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		enabled, err := m.Enabled(entry.Name())
		if err != nil {
			return nil, err
		}
		versions = append(versions, RuntimeVersion{Version: entry.Name(), Extensions: enabled})
	}
	slices.SortFunc(versions, func(a, b RuntimeVersion) int { return CompareVersions(a.Version, b.Version) })
	return versions, nil
}

// CompareVersions orders semantic versions before other names. A leading
// "v" is accepted.
func CompareVersions(a, b string) int {
	va, errA := parseSemver(a)
	vb, errB := parseSemver(b)
	switch {
	case errA == nil && errB == nil:
		return cmp.Or(va.Compare(vb), cmp.Compare(a, b))
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}

func parseSemver(version string) (*semver.Version, error) {
	return semver.NewVersion(strings.TrimPrefix(version, "v"))
}

// DefaultRuntimeVersion reads VERSION_ID from an os-release file, falling
// back to DefaultVersion.
func DefaultRuntimeVersion(osRelease string) string {
	directives, _ := release.ParseFile(osRelease, "os-release")
	if v, ok := release.Lookup(directives, versionIDKey); ok {
		if v = strings.TrimSpace(v); v != "" && validateVersion(v) == nil {
			return v
		}
	}
	return DefaultVersion
}
