// SPDX-License-Identifier: MPL-2.0

package extension

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/avocado-linux/avocadoctl/internal/testutil"
)

func newExtensionsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.MustMkdirAll(t, filepath.Join(dir, "ext1-1.0.0"), 0o755)
	testutil.MustWriteFile(t, filepath.Join(dir, "ext2-1.0.0.raw"), "mock raw data")
	testutil.MustWriteFile(t, filepath.Join(dir, "app.raw"), "mock raw data")
	testutil.MustMkdirAll(t, filepath.Join(dir, "app"), 0o755)
	testutil.MustWriteFile(t, filepath.Join(dir, "README.md"), "not an extension")
	testutil.MustWriteFile(t, filepath.Join(dir, ".raw"), "nameless")
	testutil.MustMkdirAll(t, filepath.Join(dir, ".hidden"), 0o755)
	return dir
}

func TestList(t *testing.T) {
	t.Parallel()

	dir := newExtensionsDir(t)
	exts, err := List(dir)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}

	var got []string
	for _, ext := range exts {
		got = append(got, ext.Name+":"+string(ext.Kind))
	}
	want := []string{"app:directory", "app:image", "ext1-1.0.0:directory", "ext2-1.0.0:image"}
	if !slices.Equal(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
	if got := Names(exts); !slices.Equal(got, []string{"app", "ext1-1.0.0", "ext2-1.0.0"}) {
		t.Errorf("Names() = %v", got)
	}
	if exts[3].EntryName() != "ext2-1.0.0.raw" {
		t.Errorf("EntryName() = %q", exts[3].EntryName())
	}
}

func TestList_MissingDir(t *testing.T) {
	t.Parallel()

	_, err := List(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrDirNotFound) {
		t.Errorf("List() error = %v, want ErrDirNotFound", err)
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	dir := newExtensionsDir(t)

	ext, err := Find(dir, "app")
	if err != nil {
		t.Fatalf("Find(app) error: %v", err)
	}
	if ext.Kind != KindDirectory {
		t.Errorf("Find(app) kind = %s, want directory", ext.Kind)
	}

	_, err = Find(dir, "nonexistent-ext")
	var nf *NotFoundError
	if !errors.As(err, &nf) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("Find() error = %v, want NotFoundError", err)
	}
	if err.Error() != "Extension 'nonexistent-ext' not found" {
		t.Errorf("error text = %q", err.Error())
	}
}
