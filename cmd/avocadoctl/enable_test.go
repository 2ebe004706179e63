// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/avocado-linux/avocadoctl/internal/testutil"
)

func TestEnable(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	testutil.MustMkdirAll(t, filepath.Join(h.extDir, "web"), 0o755)
	testutil.MustWriteFile(t, filepath.Join(h.extDir, "db.raw"), "image")

	if err := h.run("enable", "--runtime", "1.0", "web", "db"); err != nil {
		t.Fatalf("enable: %v\nstderr: %s", err, h.stderr.String())
	}

	out := h.stdout.String()
	for _, want := range []string{
		"Enabling extensions for runtime version: 1.0",
		"Enabled extension: web",
		"Enabled extension: db",
		"Successfully enabled 2 extension(s) for runtime 1.0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}

	target, err := os.Readlink(filepath.Join(h.runtimes, "1.0", "db.raw"))
	if err != nil {
		t.Fatalf("db link: %v", err)
	}
	if target != filepath.Join(h.extDir, "db.raw") {
		t.Errorf("db link target = %q", target)
	}
	if h.synced != 1 {
		t.Errorf("synced %d times, want 1", h.synced)
	}
}

func TestEnable_UnknownExtension(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	testutil.MustMkdirAll(t, filepath.Join(h.extDir, "web"), 0o755)

	err := h.run("enable", "--runtime", "1.0", "ghost", "web")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("err = %v, want *ExitError", err)
	}
	if !strings.Contains(h.stderr.String(), "Extension 'ghost' not found") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
	if _, err := os.Lstat(filepath.Join(h.runtimes, "1.0", "web")); err != nil {
		t.Errorf("known extension not enabled: %v", err)
	}
}

func TestEnable_DefaultRuntimeFromOSRelease(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	testutil.MustMkdirAll(t, filepath.Join(h.extDir, "web"), 0o755)
	testutil.MustWriteFile(t, filepath.Join(h.root, "os-release"), "NAME=Avocado\nVERSION_ID=\"2.1\"\n")

	if err := h.run("enable", "web"); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !strings.Contains(h.stdout.String(), "runtime version: 2.1") {
		t.Errorf("stdout = %q", h.stdout.String())
	}
	if _, err := os.Lstat(filepath.Join(h.runtimes, "2.1", "web")); err != nil {
		t.Errorf("link missing: %v", err)
	}
}

func TestDisable(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	testutil.MustMkdirAll(t, filepath.Join(h.extDir, "web"), 0o755)
	testutil.MustMkdirAll(t, filepath.Join(h.extDir, "db"), 0o755)
	if err := h.run("enable", "-r", "1.0", "web", "db"); err != nil {
		t.Fatal(err)
	}
	h.stdout.Reset()

	if err := h.run("disable", "-r", "1.0", "web"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	out := h.stdout.String()
	for _, want := range []string{
		"Disabling extensions for runtime version: 1.0",
		"Disabled extension: web",
		"Successfully disabled 1 extension(s)",
		"Synced changes to disk",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Lstat(filepath.Join(h.runtimes, "1.0", "db")); err != nil {
		t.Errorf("db link removed: %v", err)
	}
}

func TestDisable_All(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	testutil.MustMkdirAll(t, filepath.Join(h.extDir, "web"), 0o755)
	testutil.MustMkdirAll(t, filepath.Join(h.extDir, "db"), 0o755)
	if err := h.run("enable", "-r", "1.0", "web", "db"); err != nil {
		t.Fatal(err)
	}
	h.stdout.Reset()

	if err := h.run("disable", "-r", "1.0", "--all"); err != nil {
		t.Fatalf("disable --all: %v", err)
	}
	if !strings.Contains(h.stdout.String(), "Removing all extensions") {
		t.Errorf("stdout = %q", h.stdout.String())
	}
	entries, err := os.ReadDir(filepath.Join(h.runtimes, "1.0"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d links left", len(entries))
	}
}

func TestDisable_Arguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"no names", []string{"disable", "-r", "1.0"}},
		{"names with all", []string{"disable", "-r", "1.0", "--all", "web"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			if err := h.run(tt.args...); err == nil {
				t.Fatal("expected an argument error")
			}
			if strings.Contains(h.stdout.String(), "Disabling") {
				t.Error("command ran despite invalid arguments")
			}
		})
	}
}

func TestDisable_NotEnabled(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	testutil.MustMkdirAll(t, filepath.Join(h.extDir, "web"), 0o755)

	err := h.run("disable", "-r", "1.0", "web")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("err = %v, want *ExitError", err)
	}
	if !strings.Contains(h.stderr.String(), "Extension 'web' is not enabled") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestRuntimeList(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	testutil.MustMkdirAll(t, filepath.Join(h.extDir, "web"), 0o755)
	for _, v := range []string{"1.10.0", "1.9.0"} {
		if err := h.run("enable", "-r", v, "web"); err != nil {
			t.Fatal(err)
		}
	}
	h.stdout.Reset()

	if err := h.run("runtime", "list"); err != nil {
		t.Fatalf("runtime list: %v", err)
	}
	out := h.stdout.String()
	if strings.Index(out, "1.9.0") > strings.Index(out, "1.10.0") {
		t.Errorf("versions not in semver order:\n%s", out)
	}
	if !strings.Contains(out, "(1 extension(s))") {
		t.Errorf("stdout = %q", out)
	}
}
