// SPDX-License-Identifier: MPL-2.0

// Package supervisor wraps the systemd primitives used for transient mounts:
// systemd-mount, systemd-umount and systemctl daemon-reload.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/avocado-linux/avocadoctl/internal/logging"
	"github.com/avocado-linux/avocadoctl/internal/runtime"

	"github.com/coreos/go-systemd/v22/unit"
)

const (
	mountTool   = "systemd-mount"
	umountTool  = "systemd-umount"
	controlTool = "systemctl"

	// MountSuffix is the unit type suffix of mount units.
	MountSuffix = ".mount"
)

type (
	// Mount describes one transient mount.
	Mount struct {
		// What is the source, e.g. "10.0.0.1:/ext".
		What string
		// Where is the absolute mount point.
		Where string
		// Type is the filesystem type passed with -t.
		Type string
		// Options is the comma separated option string passed with -o.
		Options string
	}

	// Client invokes the supervisor tools through a runtime.Runner.
	Client struct {
		Runner runtime.Runner
		Logger *slog.Logger
	}
)

// NewClient creates a Client.
func NewClient(runner runtime.Runner, logger *slog.Logger) *Client {
	return &Client{Runner: runner, Logger: logger}
}

// Args returns the systemd-mount arguments for m.
func (m Mount) Args() []string {
	var args []string
	if m.Type != "" {
		args = append(args, "-t", m.Type)
	}
	if m.Options != "" {
		args = append(args, "-o", m.Options)
	}
	return append(args, m.What, m.Where)
}

// UnitName returns the transient mount unit that tracks m.
func (m Mount) UnitName() string {
	return MountUnitName(m.Where)
}

// MountUnitName returns the systemd mount unit name for an absolute path,
// e.g. "/run/avocado/hitl/my-ext" -> "run-avocado-hitl-my\x2dext.mount".
func MountUnitName(path string) string {
	return unit.UnitNamePathEscape(filepath.Clean(path)) + MountSuffix
}

// Mount creates a transient mount unit.
func (c *Client) Mount(ctx context.Context, m Mount) error {
	logging.OrDefault(c.Logger).Debug("creating transient mount", "what", m.What, "where", m.Where, "unit", m.UnitName())
	if _, err := c.Runner.Run(ctx, mountTool, m.Args()...); err != nil {
		return fmt.Errorf("mount %s on %s: %w", m.What, m.Where, err)
	}
	return nil
}

// Unmount stops the mount unit at where.
func (c *Client) Unmount(ctx context.Context, where string) error {
	logging.OrDefault(c.Logger).Debug("stopping transient mount", "where", where)
	if _, err := c.Runner.Run(ctx, umountTool, where); err != nil {
		return fmt.Errorf("unmount %s: %w", where, err)
	}
	return nil
}

// DaemonReload makes the service manager reread unit files and drop-ins.
func (c *Client) DaemonReload(ctx context.Context) error {
	if _, err := c.Runner.Run(ctx, controlTool, "daemon-reload"); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	return nil
}
