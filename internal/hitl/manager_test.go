// SPDX-License-Identifier: MPL-2.0

package hitl

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/avocado-linux/avocadoctl/internal/logging"
	"github.com/avocado-linux/avocadoctl/internal/runtime"
	"github.com/avocado-linux/avocadoctl/internal/runtime/runtimetest"
	"github.com/avocado-linux/avocadoctl/internal/supervisor"
	"github.com/avocado-linux/avocadoctl/internal/testutil"
	"github.com/avocado-linux/avocadoctl/pkg/types"
)

type fakeTable map[string]bool

func (f fakeTable) IsMounted(_ context.Context, path string) (bool, error) {
	return f[path], nil
}

func newManager(t *testing.T, rec *runtimetest.Recorder, mounted fakeTable) *Manager {
	t.Helper()
	root := t.TempDir()
	return &Manager{
		Dir:           filepath.Join(root, "hitl"),
		DropinDir:     filepath.Join(root, "run", "systemd", "system"),
		Supervisor:    supervisor.NewClient(rec, nil),
		Mounts:        mounted,
		RetryInterval: time.Millisecond,
		Logger:        logging.New(io.Discard, logging.Options{}),
	}
}

func TestManager_MountTwoExtensions(t *testing.T) {
	t.Parallel()

	rec := runtimetest.New()
	m := newManager(t, rec, fakeTable{})
	testutil.MustWriteFile(t, testutil.ReleaseFile(m.MountPath("e1"), "e1"), "AVOCADO_ENABLE_SERVICES=svc\n")

	result, err := m.Mount(context.Background(), MountRequest{Server: "10.0.0.1", Extensions: []string{"e1", "e2"}})
	if err != nil {
		t.Fatalf("Mount() error: %v", err)
	}

	for _, ext := range []string{"e1", "e2"} {
		if info, err := os.Stat(m.MountPath(ext)); err != nil || !info.IsDir() {
			t.Errorf("mount point for %s missing: %v", ext, err)
		}
	}
	if rec.Count("systemd-mount") != 2 {
		t.Errorf("mounts = %d, want 2: %v", rec.Count("systemd-mount"), rec.Events())
	}
	wantMount := "systemd-mount -t nfs4 -o " + Options(types.DefaultNFSPort) + " 10.0.0.1:/e1 " + m.MountPath("e1")
	if rec.Index(wantMount) < 0 {
		t.Errorf("missing %q in %v", wantMount, rec.Events())
	}

	dropin := filepath.Join(m.DropinDir, "svc.d", "10-hitl-e1.conf")
	if !slices.Equal(result.Dropins, []string{dropin}) {
		t.Errorf("Dropins = %v, want [%s]", result.Dropins, dropin)
	}
	if _, err := os.Stat(filepath.Join(m.DropinDir, "svc.service.d")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("drop-in directory renamed with a unit suffix: %v", err)
	}
	content := testutil.MustReadFile(t, dropin)
	unitName := supervisor.MountUnitName(m.MountPath("e1"))
	for _, want := range []string{"[Unit]", "RequiresMountsFor=" + m.MountPath("e1"), "BindsTo=" + unitName, "After=" + unitName} {
		if !strings.Contains(content, want) {
			t.Errorf("drop-in missing %q:\n%s", want, content)
		}
	}
	if rec.Count("systemctl daemon-reload") != 1 {
		t.Errorf("daemon-reload runs = %d, want 1", rec.Count("systemctl daemon-reload"))
	}
	if !slices.Equal(result.Mounted, []string{"e1", "e2"}) {
		t.Errorf("Mounted = %v", result.Mounted)
	}
}

func TestManager_UnmountIsolatesExtensions(t *testing.T) {
	t.Parallel()

	rec := runtimetest.New()
	m := newManager(t, rec, fakeTable{})
	testutil.MustWriteFile(t, testutil.ReleaseFile(m.MountPath("e1"), "e1"), "AVOCADO_ENABLE_SERVICES=svc\n")
	testutil.MustWriteFile(t, testutil.ReleaseFile(m.MountPath("e2"), "e2"), "AVOCADO_ENABLE_SERVICES=svc other.socket\n")

	if _, err := m.Mount(context.Background(), MountRequest{Server: "host", Extensions: []string{"e1", "e2"}}); err != nil {
		t.Fatalf("Mount() error: %v", err)
	}

	result, err := m.Unmount(context.Background(), []string{"e1"})
	if err != nil {
		t.Fatalf("Unmount() error: %v", err)
	}
	if _, err := os.Stat(DropinPath(m.DropinDir, "svc", "e1")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("e1 drop-in still present: %v", err)
	}
	for _, svc := range []string{"svc", "other.socket"} {
		if _, err := os.Stat(DropinPath(m.DropinDir, svc, "e2")); err != nil {
			t.Errorf("e2 drop-in for %s removed: %v", svc, err)
		}
	}
	if rec.Index("systemd-umount "+m.MountPath("e1")) < 0 || rec.Count("systemd-umount "+m.MountPath("e2")) != 0 {
		t.Errorf("unexpected unmounts: %v", rec.Events())
	}
	if !slices.Equal(result.Unmounted, []string{"e1"}) {
		t.Errorf("Unmounted = %v", result.Unmounted)
	}
}

func TestManager_UnmountRemovesEmptyDropinDir(t *testing.T) {
	t.Parallel()

	rec := runtimetest.New()
	m := newManager(t, rec, fakeTable{})
	testutil.MustWriteFile(t, testutil.ReleaseFile(m.MountPath("e1"), "e1"), "AVOCADO_ENABLE_SERVICES=solo\n")
	testutil.MustWriteFile(t, filepath.Join(m.DropinDir, "keep.service.d", "override.conf"), "[Unit]\n")
	testutil.MustWriteFile(t, filepath.Join(m.DropinDir, "keep.service.d", DropinName("e1")), "[Unit]\n")

	if _, err := m.Mount(context.Background(), MountRequest{Server: "host", Extensions: []string{"e1"}}); err != nil {
		t.Fatalf("Mount() error: %v", err)
	}
	if _, err := m.Unmount(context.Background(), []string{"e1"}); err != nil {
		t.Fatalf("Unmount() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(m.DropinDir, "solo.d")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("empty drop-in dir not removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(m.DropinDir, "keep.service.d", "override.conf")); err != nil {
		t.Errorf("unrelated drop-in removed: %v", err)
	}
}

func TestManager_AlreadyMountedSkipsPrimitive(t *testing.T) {
	t.Parallel()

	rec := runtimetest.New()
	m := newManager(t, rec, nil)
	m.Mounts = fakeTable{m.MountPath("e1"): true}

	result, err := m.Mount(context.Background(), MountRequest{Server: "host", Extensions: []string{"e1"}})
	if err != nil {
		t.Fatalf("Mount() error: %v", err)
	}
	if rec.Count("systemd-mount") != 0 {
		t.Errorf("mount ran for mounted path: %v", rec.Events())
	}
	if !slices.Equal(result.AlreadyMounted, []string{"e1"}) {
		t.Errorf("AlreadyMounted = %v", result.AlreadyMounted)
	}
	if rec.Count("systemctl") != 0 {
		t.Errorf("daemon-reload without drop-ins: %v", rec.Events())
	}
}

func TestManager_MountFailureDoesNotBlockSiblings(t *testing.T) {
	t.Parallel()

	rec := runtimetest.New()
	m := newManager(t, rec, fakeTable{})
	rec.Fail("systemd-mount -t nfs4 -o " + Options(2049) + " host:/bad " + m.MountPath("bad"))

	result, err := m.Mount(context.Background(), MountRequest{Server: "host", Port: 2049, Extensions: []string{"bad", "../x", "good"}})

	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("Mount() error = %v, want *BatchError", err)
	}
	if got := batchErr.Extensions(); !slices.Equal(got, []string{"bad", "../x"}) {
		t.Errorf("failed extensions = %v", got)
	}
	if !errors.Is(err, runtime.ErrCommandFailed) || !errors.Is(err, ErrInvalidExtensionName) {
		t.Errorf("BatchError does not wrap causes: %v", err)
	}
	if !slices.Equal(result.Mounted, []string{"good"}) {
		t.Errorf("Mounted = %v", result.Mounted)
	}
}

func TestManager_MountRetries(t *testing.T) {
	t.Parallel()

	rec := runtimetest.New().Fail("systemd-mount")
	m := newManager(t, rec, fakeTable{})
	m.Retries = 2

	_, err := m.Mount(context.Background(), MountRequest{Server: "host", Extensions: []string{"e1"}})
	if err == nil {
		t.Fatal("Mount() succeeded, want failure")
	}
	if got := rec.Count("systemd-mount"); got != 3 {
		t.Errorf("mount attempts = %d, want 3", got)
	}
}

func TestManager_MountValidatesRequest(t *testing.T) {
	t.Parallel()

	m := newManager(t, runtimetest.New(), fakeTable{})

	if _, err := m.Mount(context.Background(), MountRequest{Extensions: []string{"e1"}}); !errors.Is(err, ErrNoServer) {
		t.Errorf("missing server error = %v", err)
	}
	if _, err := m.Mount(context.Background(), MountRequest{Server: "h", Port: 70000}); !errors.Is(err, types.ErrInvalidPort) {
		t.Errorf("bad port error = %v", err)
	}
}

func TestManager_Mounted(t *testing.T) {
	t.Parallel()

	m := newManager(t, runtimetest.New(), nil)
	testutil.MustMkdirAll(t, m.MountPath("b"), 0o755)
	testutil.MustMkdirAll(t, m.MountPath("a"), 0o755)
	testutil.MustWriteFile(t, filepath.Join(m.MountPath("a"), "usr", "file"), "x")
	testutil.MustWriteFile(t, filepath.Join(m.MountPath("c"), "file"), "x")
	m.Mounts = PopulatedDirTable{}

	got, err := m.Mounted(context.Background())
	if err != nil {
		t.Fatalf("Mounted() error: %v", err)
	}
	if !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("Mounted() = %v, want [a c]", got)
	}
}

func TestDropinPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		service string
		want    string
	}{
		{"svc", "/run/systemd/system/svc.d/10-hitl-e1.conf"},
		{"svc.service", "/run/systemd/system/svc.service.d/10-hitl-e1.conf"},
		{"dbus.socket", "/run/systemd/system/dbus.socket.d/10-hitl-e1.conf"},
		{"my.app", "/run/systemd/system/my.app.d/10-hitl-e1.conf"},
	}
	for _, tt := range tests {
		if got := DropinPath("/run/systemd/system", tt.service, "e1"); got != tt.want {
			t.Errorf("DropinPath(%q) = %q, want %q", tt.service, got, tt.want)
		}
	}
}
