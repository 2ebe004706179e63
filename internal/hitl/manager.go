// SPDX-License-Identifier: MPL-2.0

package hitl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/avocado-linux/avocadoctl/internal/logging"
	"github.com/avocado-linux/avocadoctl/internal/release"
	"github.com/avocado-linux/avocadoctl/internal/runtime"
	"github.com/avocado-linux/avocadoctl/internal/supervisor"
	"github.com/avocado-linux/avocadoctl/pkg/types"

	"github.com/cenkalti/backoff/v4"
)

const (
	// OpMount names Mount in a BatchError.
	OpMount = "hitl mount"
	// OpUnmount names Unmount in a BatchError.
	OpUnmount = "hitl unmount"

	// FSType is the filesystem type of HITL mounts.
	FSType = "nfs4"

	// DefaultRetryInterval is the first delay between mount attempts.
	DefaultRetryInterval = 500 * time.Millisecond

	stepCreateDir = "create directory"
	stepMount     = "mount"
	stepDropins   = "write drop-ins"
	stepRemove    = "remove drop-ins"
	stepUnmount   = "unmount"
)

type (
	// Supervisor is the subset of supervisor.Client the manager needs.
	Supervisor interface {
		Mount(ctx context.Context, m supervisor.Mount) error
		Unmount(ctx context.Context, where string) error
		DaemonReload(ctx context.Context) error
	}

	// Manager mounts and unmounts HITL extensions.
	Manager struct {
		// Dir holds one mount point per extension.
		Dir string
		// DropinDir is the systemd unit directory drop-ins are written to.
		DropinDir  string
		Supervisor Supervisor
		Mounts     MountTable
		// Retries is the number of extra mount attempts after a failure.
		Retries       int
		RetryInterval time.Duration
		Logger        *slog.Logger
	}

	// MountRequest names the server and extensions to mount.
	MountRequest struct {
		Server     string
		Port       types.Port
		Extensions []string
	}

	// Result lists what a batch changed.
	Result struct {
		Mounted        []string
		AlreadyMounted []string
		Unmounted      []string
		Dropins        []string
	}
)

// Options returns the NFS mount options for port.
func Options(port types.Port) string {
	return fmt.Sprintf("port=%d,vers=4,hard,timeo=600,retrans=2,acregmin=0,acregmax=1,acdirmin=0,acdirmax=1,lookupcache=none", port)
}

// MountPath returns the mount point of extension.
func (m *Manager) MountPath(extension string) string {
	return filepath.Join(m.Dir, extension)
}

// Mount mounts every requested extension and writes service drop-ins for it.
// Failed extensions are reported in a *BatchError after the others were
// processed.
func (m *Manager) Mount(ctx context.Context, req MountRequest) (*Result, error) {
	if strings.TrimSpace(req.Server) == "" {
		return nil, ErrNoServer
	}
	port := req.Port
	if port == 0 {
		port = types.DefaultNFSPort
	}
	if valid, errs := port.IsValid(); !valid {
		return nil, errs[0]
	}

	logger := logging.OrDefault(m.Logger)
	result := &Result{}
	b := &batch{op: OpMount}

	for _, ext := range req.Extensions {
		if err := ValidateName(ext); err != nil {
			b.fail(ext, stepCreateDir, err)
			continue
		}
		path := m.MountPath(ext)

		if err := os.MkdirAll(path, dirPerm); err != nil {
			logger.Error("failed to create extension directory", "extension", ext, "path", path, "error", err)
			b.fail(ext, stepCreateDir, err)
			continue
		}

		mounted, err := m.isMounted(ctx, path)
		if err != nil {
			logger.Warn("cannot inspect mount table, mounting anyway", "path", path, "error", err)
		}
		if mounted {
			logger.Info("extension already mounted", "extension", ext, "path", path)
			result.AlreadyMounted = append(result.AlreadyMounted, ext)
		} else {
			mount := supervisor.Mount{
				What:    req.Server + ":/" + ext,
				Where:   path,
				Type:    FSType,
				Options: Options(port),
			}
			if err := m.mountWithRetry(ctx, mount); err != nil {
				logger.Error("failed to mount extension", "extension", ext, "error", err)
				b.fail(ext, stepMount, err)
				continue
			}
			logger.Info("mounted extension", "extension", ext, "unit", mount.UnitName())
			result.Mounted = append(result.Mounted, ext)
		}

		written, err := writeDropins(m.DropinDir, ext, path, m.services(ext, path))
		result.Dropins = append(result.Dropins, written...)
		if err != nil {
			b.fail(ext, stepDropins, err)
		}
	}

	if len(result.Dropins) > 0 {
		m.reload(ctx)
	}
	return result, b.err()
}

// Unmount removes the drop-ins of every named extension and stops its mount.
func (m *Manager) Unmount(ctx context.Context, extensions []string) (*Result, error) {
	logger := logging.OrDefault(m.Logger)
	result := &Result{}
	b := &batch{op: OpUnmount}

	for _, ext := range extensions {
		if err := ValidateName(ext); err != nil {
			b.fail(ext, stepRemove, err)
			continue
		}

		removed, err := removeDropins(m.DropinDir, ext)
		result.Dropins = append(result.Dropins, removed...)
		if err != nil {
			logger.Warn("failed to remove drop-ins", "extension", ext, "error", err)
			b.fail(ext, stepRemove, err)
		}

		path := m.MountPath(ext)
		if err := m.Supervisor.Unmount(ctx, path); err != nil {
			logger.Error("failed to unmount extension", "extension", ext, "error", err)
			b.fail(ext, stepUnmount, err)
			continue
		}
		logger.Info("unmounted extension", "extension", ext, "path", path)
		result.Unmounted = append(result.Unmounted, ext)
	}

	if len(result.Dropins) > 0 {
		m.reload(ctx)
	}
	return result, b.err()
}

// Mounted returns the extensions under Dir that are currently mounted,
// sorted by name.
func (m *Manager) Mounted(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read HITL directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		mounted, err := m.isMounted(ctx, m.MountPath(entry.Name()))
		if err != nil {
			return nil, err
		}
		if mounted {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// services returns the ENABLE_SERVICES of the extension mounted at path.
func (m *Manager) services(ext, path string) []string {
	logger := logging.OrDefault(m.Logger)
	list := release.Aggregate([]release.Extension{{Name: ext, Files: release.ExtensionFiles(path, ext)}}, release.KindEnableServices)
	for _, d := range list.Diagnostics {
		if d.Code == release.CodeReleaseFileMissing {
			logger.Debug(d.String())
			continue
		}
		logger.Warn(d.String())
	}
	return list.Items
}

func (m *Manager) isMounted(ctx context.Context, path string) (bool, error) {
	if m.Mounts == nil {
		return false, nil
	}
	return m.Mounts.IsMounted(ctx, path)
}

func (m *Manager) mountWithRetry(ctx context.Context, mount supervisor.Mount) error {
	interval := m.RetryInterval
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = interval
	eb.MaxElapsedTime = 0

	retries := max(m.Retries, 0)
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := m.Supervisor.Mount(ctx, mount)
		if err == nil {
			return nil
		}
		if errors.Is(err, runtime.ErrCommandNotFound) {
			return backoff.Permanent(err)
		}
		if attempt <= retries {
			logging.OrDefault(m.Logger).Warn("mount attempt failed, retrying", "where", mount.Where, "attempt", attempt, "error", err)
		}
		return err
	}, policy)
}

func (m *Manager) reload(ctx context.Context) {
	if err := m.Supervisor.DaemonReload(ctx); err != nil {
		logging.OrDefault(m.Logger).Warn("daemon-reload failed, drop-ins apply on next reload", "error", err)
	}
}
