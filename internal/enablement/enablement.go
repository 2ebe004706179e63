// SPDX-License-Identifier: MPL-2.0

package enablement

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/avocado-linux/avocadoctl/internal/extension"
	"github.com/avocado-linux/avocadoctl/internal/issue"
	"github.com/avocado-linux/avocadoctl/internal/logging"

	"golang.org/x/sys/unix"
)

const runtimeDirPerm = 0o755

var (
	// ErrNotEnabled is returned when disabling an extension that has no link.
	ErrNotEnabled = errors.New("extension not enabled")
	// ErrInvalidVersion is returned for runtime versions that are not a
	// single path element.
	ErrInvalidVersion = errors.New("invalid runtime version")
)

type (
	// Manager creates and removes runtime links.
	Manager struct {
		ExtensionsDir string
		RuntimeDir    string
		Logger        *slog.Logger
		// Sync flushes filesystem changes. Nil uses sync(2).
		Sync func()
	}

	// Result reports the outcome of Enable or Disable.
	Result struct {
		Version string
		Changed []string
		// Failures holds one error per name that could not be processed.
		Failures []error
	}

	// NotEnabledError names an extension without a runtime link.
	NotEnabledError struct {
		Name string
	}
)

// Error implements the error interface.
func (e *NotEnabledError) Error() string {
	return fmt.Sprintf("Extension '%s' is not enabled", e.Name)
}

// Unwrap returns ErrNotEnabled for errors.Is() compatibility.
func (e *NotEnabledError) Unwrap() error { return ErrNotEnabled }

// VersionDir returns the link directory of version.
func (m *Manager) VersionDir(version string) string {
	return filepath.Join(m.RuntimeDir, version)
}

// Enable links every named extension into the version directory. Unknown
// names are recorded in Result.Failures and do not stop the others.
func (m *Manager) Enable(version string, names []string) (*Result, error) {
	if err := validateVersion(version); err != nil {
		return nil, err
	}
	available, err := extension.List(m.ExtensionsDir)
	if err != nil {
		return nil, err
	}

	dir := m.VersionDir(version)
	if err := os.MkdirAll(dir, runtimeDirPerm); err != nil {
		return nil, issue.WrapWithContext(err, "create runtime directory", dir)
	}

	logger := logging.OrDefault(m.Logger)
	result := &Result{Version: version}
	for _, name := range names {
		idx := slices.IndexFunc(available, func(e extension.Extension) bool { return e.Name == name })
		if idx < 0 {
			result.Failures = append(result.Failures, &extension.NotFoundError{Name: name})
			continue
		}
		ext := available[idx]

		link := filepath.Join(dir, ext.EntryName())
		if err := replaceLink(ext.Path, link); err != nil {
			result.Failures = append(result.Failures, issue.WrapWithContext(err, "enable extension", name))
			continue
		}
		logger.Debug("linked extension", "extension", name, "link", link, "target", ext.Path)
		result.Changed = append(result.Changed, name)
	}

	m.sync(result)
	return result, nil
}

// Disable removes the links of the named extensions. Names without a link
// are recorded as *NotEnabledError.
func (m *Manager) Disable(version string, names []string) (*Result, error) {
	if err := validateVersion(version); err != nil {
		return nil, err
	}
	dir := m.VersionDir(version)
	result := &Result{Version: version}

	for _, name := range names {
		var found, removed bool
		for _, entry := range []string{name, name + extension.ImageSuffix} {
			path := filepath.Join(dir, entry)
			if !isSymlink(path) {
				continue
			}
			found = true
			if err := os.Remove(path); err != nil {
				result.Failures = append(result.Failures, issue.WrapWithContext(err, "disable extension", name))
				continue
			}
			removed = true
		}
		switch {
		case removed:
			result.Changed = append(result.Changed, name)
		case !found:
			result.Failures = append(result.Failures, &NotEnabledError{Name: name})
		}
	}

	m.sync(result)
	return result, nil
}

// DisableAll removes every link of version.
func (m *Manager) DisableAll(version string) (*Result, error) {
	if err := validateVersion(version); err != nil {
		return nil, err
	}
	links, err := m.links(version)
	if err != nil {
		return nil, err
	}
	result := &Result{Version: version}
	for _, link := range links {
		if err := os.Remove(filepath.Join(m.VersionDir(version), link)); err != nil {
			result.Failures = append(result.Failures, issue.WrapWithContext(err, "disable extension", linkName(link)))
			continue
		}
		result.Changed = append(result.Changed, linkName(link))
	}
	m.sync(result)
	return result, nil
}

// Enabled returns the names of the extensions enabled for version, sorted.
func (m *Manager) Enabled(version string) ([]string, error) {
	links, err := m.links(version)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(links))
	for _, link := range links {
		names = append(names, linkName(link))
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// links lists the symlink entries of a version directory. A missing
// directory has none.
func (m *Manager) links(version string) ([]string, error) {
	entries, err := os.ReadDir(m.VersionDir(version))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, issue.WrapWithOperation(err, "read runtime directory")
	}
	var links []string
	for _, entry := range entries {
		if entry.Type()&fs.ModeSymlink != 0 {
			links = append(links, entry.Name())
		}
	}
	return links, nil
}

func (m *Manager) sync(result *Result) {
	if len(result.Changed) == 0 {
		return
	}
	if m.Sync != nil {
		m.Sync()
		return
	}
	unix.Sync()
}

// replaceLink points link at target, replacing an existing link.
func replaceLink(target, link string) error {
	if isSymlink(link) {
		if err := os.Remove(link); err != nil {
			return err
		}
	}
	return os.Symlink(target, link)
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&fs.ModeSymlink != 0
}

func linkName(entry string) string {
	if base, ok := strings.CutSuffix(entry, extension.ImageSuffix); ok && base != "" {
		return base
	}
	return entry
}

func validateVersion(version string) error {
	if version == "" || version == "." || version == ".." || strings.ContainsAny(version, "/\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	return nil
}
