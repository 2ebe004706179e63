// SPDX-License-Identifier: MPL-2.0

package hitl

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/avocado-linux/avocadoctl/internal/supervisor"

	"github.com/coreos/go-systemd/v22/unit"
)

const (
	dropinPrefix = "10-hitl-"
	dropinSuffix = ".conf"
	dropinDirExt = ".d"

	dirPerm  = 0o755
	filePerm = 0o644
)

// DropinName returns the drop-in file name used for extension.
func DropinName(extension string) string {
	return dropinPrefix + extension + dropinSuffix
}

// DropinPath returns where the drop-in binding service to extension lives.
// The directory is keyed on service exactly as declared.
func DropinPath(dropinDir, service, extension string) string {
	return filepath.Join(dropinDir, service+dropinDirExt, DropinName(extension))
}

// DropinContent renders the [Unit] section tying a service to the mount at
// mountPath.
func DropinContent(mountPath string) ([]byte, error) {
	mountUnit := supervisor.MountUnitName(mountPath)
	return io.ReadAll(unit.Serialize([]*unit.UnitOption{
		unit.NewUnitOption("Unit", "RequiresMountsFor", mountPath),
		unit.NewUnitOption("Unit", "BindsTo", mountUnit),
		unit.NewUnitOption("Unit", "After", mountUnit),
	}))
}

// writeDropins writes one drop-in per service and returns the paths written.
func writeDropins(dropinDir, extension, mountPath string, services []string) ([]string, error) {
	if len(services) == 0 {
		return nil, nil
	}
	content, err := DropinContent(mountPath)
	if err != nil {
		return nil, fmt.Errorf("render drop-in: %w", err)
	}

	written := make([]string, 0, len(services))
	for _, service := range services {
		path := DropinPath(dropinDir, service, extension)
		if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
			return written, fmt.Errorf("create drop-in directory: %w", err)
		}
		if err := os.WriteFile(path, content, filePerm); err != nil {
			return written, fmt.Errorf("write drop-in: %w", err)
		}
		written = append(written, path)
	}
	return written, nil
}

// removeDropins deletes every drop-in of extension under dropinDir/*.d and
// removes .d directories left empty. It returns the paths removed.
func removeDropins(dropinDir, extension string) ([]string, error) {
	entries, err := os.ReadDir(dropinDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read drop-in directory: %w", err)
	}

	name := DropinName(extension)
	var (
		removed []string
		errs    []error
	)
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasSuffix(entry.Name(), dropinDirExt) {
			continue
		}
		dir := filepath.Join(dropinDir, entry.Name())
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		removed = append(removed, path)
		if rest, err := os.ReadDir(dir); err == nil && len(rest) == 0 {
			_ = os.Remove(dir)
		}
	}
	return removed, errors.Join(errs...)
}
