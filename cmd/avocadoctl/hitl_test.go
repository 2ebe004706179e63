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

func TestHITLMount(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if err := h.run("hitl", "mount", "-s", "10.0.0.1", "-e", "web"); err != nil {
		t.Fatalf("hitl mount: %v\nstderr: %s", err, h.stderr.String())
	}

	out := h.stdout.String()
	for _, want := range []string{"Mounting HITL extensions...", "Extensions mounted.", "Extensions refreshed successfully."} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}

	events := h.rec.Events()
	idx := h.rec.Index("systemd-mount")
	if idx < 0 {
		t.Fatalf("systemd-mount not run: %v", events)
	}
	mount := events[idx]
	for _, want := range []string{"-t nfs4", "port=12049,vers=4", "10.0.0.1:/web", filepath.Join(h.hitlDir, "web")} {
		if !strings.Contains(mount, want) {
			t.Errorf("mount %q missing %q", mount, want)
		}
	}
	if h.rec.Index("systemd-sysext merge") < idx {
		t.Errorf("refresh did not follow the mount: %v", events)
	}
}

func TestHITLMount_ServiceDropins(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	extRoot := filepath.Join(h.hitlDir, "web")
	testutil.MustWriteFile(t, testutil.ReleaseFile(extRoot, "web"), "AVOCADO_ENABLE_SERVICES=\"nginx\"\n")

	if err := h.run("hitl", "mount", "-s", "10.0.0.1", "-p", "2049", "-e", "web"); err != nil {
		t.Fatalf("hitl mount: %v", err)
	}

	// A populated mount point counts as mounted.
	if h.rec.Count("systemd-mount") != 0 {
		t.Errorf("already mounted extension mounted again: %v", h.rec.Events())
	}
	dropin := testutil.MustReadFile(t, filepath.Join(h.dropins, "nginx.d", "10-hitl-web.conf"))
	if !strings.Contains(dropin, "RequiresMountsFor="+extRoot) {
		t.Errorf("drop-in = %q", dropin)
	}
	if h.rec.Count("systemctl daemon-reload") != 1 {
		t.Errorf("daemon-reload ran %d times, want 1", h.rec.Count("systemctl daemon-reload"))
	}
}

func TestHITLMount_Failure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.rec.Fail("systemd-mount")

	err := h.run("hitl", "mount", "-s", "10.0.0.1", "-e", "web", "-e", "db")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("err = %v, want *ExitError", err)
	}
	stderr := h.stderr.String()
	if !strings.Contains(stderr, "Some extensions failed to mount.") {
		t.Errorf("stderr = %q", stderr)
	}
	if !strings.Contains(stderr, "web") || !strings.Contains(stderr, "db") {
		t.Errorf("stderr does not list both failures: %q", stderr)
	}
	if h.rec.Count("systemd-mount") != 2 {
		t.Errorf("systemd-mount ran %d times, want 2", h.rec.Count("systemd-mount"))
	}
	if h.rec.Count("systemd-sysext") != 0 {
		t.Error("refresh ran after failed mount")
	}
}

func TestHITLMount_RequiredFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"missing server", []string{"hitl", "mount", "-e", "web"}},
		{"missing extension", []string{"hitl", "mount", "-s", "10.0.0.1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			if err := h.run(tt.args...); err == nil {
				t.Fatal("expected a flag error")
			}
			if len(h.rec.Events()) != 0 {
				t.Errorf("tools ran: %v", h.rec.Events())
			}
		})
	}
}

func TestHITLUnmount(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	dropin := filepath.Join(h.dropins, "nginx.d", "10-hitl-web.conf")
	testutil.MustWriteFile(t, dropin, "[Unit]\n")
	other := filepath.Join(h.dropins, "nginx.d", "10-hitl-db.conf")
	testutil.MustWriteFile(t, other, "[Unit]\n")

	if err := h.run("hitl", "unmount", "-e", "web"); err != nil {
		t.Fatalf("hitl unmount: %v\nstderr: %s", err, h.stderr.String())
	}

	if _, err := os.Stat(dropin); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("drop-in not removed: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("sibling drop-in removed: %v", err)
	}

	unmerge := h.rec.Index("systemd-sysext unmerge")
	umount := h.rec.Index("systemd-umount")
	merge := h.rec.Index("systemd-sysext merge")
	if unmerge < 0 || unmerge > umount || umount > merge {
		t.Errorf("unexpected order: %v", h.rec.Events())
	}
	if h.rec.Count("depmod") != 0 {
		t.Error("depmod ran during hitl unmount")
	}
}
