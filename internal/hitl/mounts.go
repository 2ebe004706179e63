// SPDX-License-Identifier: MPL-2.0

package hitl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/disk"
)

type (
	// MountTable reports whether a path is an active mount point.
	MountTable interface {
		IsMounted(ctx context.Context, path string) (bool, error)
	}

	// SystemMountTable reads the host mount table.
	SystemMountTable struct{}

	// PopulatedDirTable treats a non-empty directory as mounted. It stands in
	// for the mount table when the mount tools are mocked.
	PopulatedDirTable struct{}
)

// IsMounted implements MountTable.
func (SystemMountTable) IsMounted(ctx context.Context, path string) (bool, error) {
	partitions, err := disk.PartitionsWithContext(ctx, true)
	if err != nil {
		return false, fmt.Errorf("read mount table: %w", err)
	}
	path = filepath.Clean(path)
	for _, p := range partitions {
		if filepath.Clean(p.Mountpoint) == path {
			return true, nil
		}
	}
	return false, nil
}

// IsMounted implements MountTable.
func (PopulatedDirTable) IsMounted(_ context.Context, path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, nil
	}
	return len(entries) > 0, nil
}
