// SPDX-License-Identifier: MPL-2.0

// Package sysext drives systemd-sysext and systemd-confext, the external
// merge primitive for system and configuration extensions.
package sysext

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avocado-linux/avocadoctl/internal/config"
	"github.com/avocado-linux/avocadoctl/internal/logging"
	"github.com/avocado-linux/avocadoctl/internal/runtime"
)

const (
	// Sysext manages /usr and /opt.
	Sysext Manager = "systemd-sysext"
	// Confext manages /etc.
	Confext Manager = "systemd-confext"
)

type (
	// Manager names one of the two extension managers.
	Manager string

	// Client invokes the extension managers through a runtime.Runner.
	Client struct {
		Runner runtime.Runner
		Logger *slog.Logger
	}

	// Primitive merges and unmerges system and configuration extensions as
	// one step, sysext first.
	Primitive struct {
		Client      *Client
		SysextMode  config.MutableMode
		ConfextMode config.MutableMode
	}
)

// Managers lists the managers in the order they are driven.
var Managers = []Manager{Sysext, Confext}

// Label is the table label for extensions of this manager.
func (m Manager) Label() string {
	if m == Confext {
		return "CONFEXT"
	}
	return "SYSEXT"
}

// NewClient creates a Client.
func NewClient(runner runtime.Runner, logger *slog.Logger) *Client {
	return &Client{Runner: runner, Logger: logger}
}

// Merge runs "<manager> merge --mutable=<mode> --json=short".
func (c *Client) Merge(ctx context.Context, m Manager, mode config.MutableMode) error {
	return c.run(ctx, m, "merge", "--mutable="+mode.String(), "--json=short")
}

// Unmerge runs "<manager> unmerge --json=short".
func (c *Client) Unmerge(ctx context.Context, m Manager) error {
	return c.run(ctx, m, "unmerge", "--json=short")
}

// Status returns the merged hierarchies reported by "<manager> status --json=short".
func (c *Client) Status(ctx context.Context, m Manager) ([]Hierarchy, error) {
	res, err := c.Runner.Run(ctx, string(m), "status", "--json=short")
	if err != nil {
		return nil, fmt.Errorf("%s status: %w", m, err)
	}
	return ParseStatus([]byte(res.Output))
}

func (c *Client) run(ctx context.Context, m Manager, verb string, args ...string) error {
	res, err := c.Runner.Run(ctx, string(m), append([]string{verb}, args...)...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", m, verb, err)
	}
	logOutput(logging.OrDefault(c.Logger), string(m)+" "+verb, res.Output)
	return nil
}

// logOutput logs the manager's --json output compacted, or raw when it is
// not JSON.
func logOutput(logger *slog.Logger, op, output string) {
	output = strings.TrimSpace(output)
	if output == "" {
		logger.Debug(op + ": no output")
		return
	}
	var v any
	if err := json.Unmarshal([]byte(output), &v); err == nil {
		if compact, err := json.Marshal(v); err == nil {
			output = string(compact)
		}
	}
	logger.Debug(op, "output", output)
}

// Merge merges system then configuration extensions.
func (p *Primitive) Merge(ctx context.Context) error {
	if err := p.Client.Merge(ctx, Sysext, p.SysextMode); err != nil {
		return err
	}
	return p.Client.Merge(ctx, Confext, p.ConfextMode)
}

// Unmerge unmerges system then configuration extensions.
func (p *Primitive) Unmerge(ctx context.Context) error {
	if err := p.Client.Unmerge(ctx, Sysext); err != nil {
		return err
	}
	return p.Client.Unmerge(ctx, Confext)
}
