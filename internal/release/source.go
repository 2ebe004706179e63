// SPDX-License-Identifier: MPL-2.0

package release

import (
	"cmp"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// FilePrefix precedes the extension name in a release file name.
	FilePrefix = "extension-release."
	// SysextReleaseDir is the sysext release directory relative to a root.
	SysextReleaseDir = "usr/lib/extension-release.d"
	// ConfextReleaseDir is the confext release directory relative to a root.
	ConfextReleaseDir = "etc/extension-release.d"
)

// Dirs returns the directories holding release files of merged extensions.
// An override replaces the host locations with the override itself plus
// its sysext and confext subdirectories.
func Dirs(override string) []string {
	if override == "" {
		return []string{"/" + SysextReleaseDir, "/" + ConfextReleaseDir}
	}
	return []string{
		override,
		filepath.Join(override, SysextReleaseDir),
		filepath.Join(override, ConfextReleaseDir),
	}
}

// ExtensionFiles returns the release file locations inside an extension
// tree rooted at root.
func ExtensionFiles(root, name string) []string {
	return []string{
		filepath.Join(root, SysextReleaseDir, FilePrefix+name),
		filepath.Join(root, ConfextReleaseDir, FilePrefix+name),
	}
}

// NameFromFile derives the extension name from a release file name.
func NameFromFile(base string) string {
	if name, ok := strings.CutPrefix(base, FilePrefix); ok && name != "" {
		return name
	}
	return base
}

// Scan lists the release files in dirs and groups them by extension name.
// Missing directories are skipped. The result is sorted by name.
func Scan(dirs []string) ([]Extension, []Diagnostic) {
	var (
		order []string
		files = make(map[string][]string)
		diags []Diagnostic
	)

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				d := warning(CodeReleaseDirUnreadable, "cannot read release directory")
				d.Path, d.Cause = dir, err
				diags = append(diags, d)
			}
			continue
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			name := NameFromFile(entry.Name())
			if _, seen := files[name]; !seen {
				order = append(order, name)
			}
			if !slices.Contains(files[name], path) {
				files[name] = append(files[name], path)
			}
		}
	}

	exts := make([]Extension, 0, len(order))
	for _, name := range order {
		exts = append(exts, Extension{Name: name, Files: files[name]})
	}
	slices.SortFunc(exts, func(a, b Extension) int { return cmp.Compare(a.Name, b.Name) })
	return exts, diags
}
