// SPDX-License-Identifier: MPL-2.0

// Package extension discovers the extensions stored in the extensions path.
package extension

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ImageSuffix is the file suffix of extension disk images.
const ImageSuffix = ".raw"

const (
	// KindDirectory is an extension unpacked into a directory.
	KindDirectory Kind = "directory"
	// KindImage is an extension shipped as a .raw disk image.
	KindImage Kind = "image"
)

var (
	// ErrDirNotFound is returned when the extensions path does not exist.
	ErrDirNotFound = errors.New("extensions directory not found")
	// ErrNotFound is returned when no extension has the requested name.
	ErrNotFound = errors.New("extension not found")
)

type (
	// Kind tells how an extension is stored.
	Kind string

	// Extension is one entry of the extensions path.
	Extension struct {
		Name string
		Path string
		Kind Kind
	}

	// NotFoundError reports a missing extension. It wraps ErrNotFound.
	NotFoundError struct {
		Name string
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Extension '%s' not found", e.Name)
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// EntryName is the file name of the extension inside the extensions path.
func (e Extension) EntryName() string {
	return filepath.Base(e.Path)
}

// NameFromEntry derives an extension name from a directory entry. It
// reports false for entries that are not extensions.
func NameFromEntry(entry fs.DirEntry) (string, Kind, bool) {
	name := entry.Name()
	if strings.HasPrefix(name, ".") {
		return "", "", false
	}
	if entry.IsDir() {
		return name, KindDirectory, true
	}
	if entry.Type().IsRegular() {
		if base, ok := strings.CutSuffix(name, ImageSuffix); ok && base != "" {
			return base, KindImage, true
		}
	}
	return "", "", false
}

// List returns the extensions in dir sorted by name. Directories and .raw
// files are extensions; everything else is ignored.
func List(dir string) ([]Extension, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirNotFound, dir)
		}
		return nil, fmt.Errorf("read extensions directory %s: %w", dir, err)
	}

	exts := make([]Extension, 0, len(entries))
	for _, entry := range entries {
		name, kind, ok := NameFromEntry(entry)
		if !ok {
			continue
		}
		exts = append(exts, Extension{Name: name, Path: filepath.Join(dir, entry.Name()), Kind: kind})
	}

	slices.SortFunc(exts, func(a, b Extension) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Kind, b.Kind))
	})
	return exts, nil
}

// Find returns the extension called name. A directory wins over an image
// of the same name.
func Find(dir, name string) (Extension, error) {
	exts, err := List(dir)
	if err != nil {
		return Extension{}, err
	}
	for _, ext := range exts {
		if ext.Name == name {
			return ext, nil
		}
	}
	return Extension{}, &NotFoundError{Name: name}
}

// Names returns the names of exts without duplicates.
func Names(exts []Extension) []string {
	names := make([]string, 0, len(exts))
	for _, ext := range exts {
		if len(names) == 0 || names[len(names)-1] != ext.Name {
			names = append(names, ext.Name)
		}
	}
	return names
}
