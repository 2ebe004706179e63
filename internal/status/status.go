// SPDX-License-Identifier: MPL-2.0

// Package status reports which extensions are merged, where they come from
// and which are available but not merged.
package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/avocado-linux/avocadoctl/internal/extension"
	"github.com/avocado-linux/avocadoctl/internal/logging"
	"github.com/avocado-linux/avocadoctl/internal/sysext"
)

const (
	// StateMerged marks an extension active in a hierarchy.
	StateMerged State = "merged"
	// StateAvailable marks an extension that could be merged.
	StateAvailable State = "available"

	// OriginLocal is the extensions path.
	OriginLocal Origin = "local"
	// OriginHITL is a HITL NFS mount.
	OriginHITL Origin = "hitl"
	// OriginUnknown is neither of the above.
	OriginUnknown Origin = "unknown"

	// TypeNone is the Type of extensions that are not merged.
	TypeNone = "-"
)

type (
	// State is the merge state of an extension.
	State string

	// Origin is where an extension is served from.
	Origin string

	// StatusSource reports merged hierarchies.
	StatusSource interface {
		Status(ctx context.Context, m sysext.Manager) ([]sysext.Hierarchy, error)
	}

	// MountLister lists mounted HITL extensions.
	MountLister interface {
		Mounted(ctx context.Context) ([]string, error)
	}

	// Collector gathers a Report.
	Collector struct {
		Status        StatusSource
		ExtensionsDir string
		HITL          MountLister
		Logger        *slog.Logger
	}

	// Row is one line of the report.
	Row struct {
		Extension string `json:"extension" yaml:"extension"`
		Type      string `json:"type" yaml:"type"`
		Status    State  `json:"status" yaml:"status"`
		Origin    Origin `json:"origin" yaml:"origin"`
	}

	// Summary counts the rows of a report.
	Summary struct {
		Merged    int `json:"merged" yaml:"merged"`
		Available int `json:"available" yaml:"available"`
		HITL      int `json:"hitl" yaml:"hitl"`
	}

	// Report is the collected status.
	Report struct {
		Hierarchies map[string][]sysext.Hierarchy `json:"hierarchies,omitempty" yaml:"hierarchies,omitempty"`
		Rows        []Row                         `json:"extensions" yaml:"extensions"`
		Summary     Summary                       `json:"summary" yaml:"summary"`
		Warnings    []string                      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	}
)

// Collect queries both extension managers, the extensions path and the HITL
// mounts. Failing sources become warnings.
func (c *Collector) Collect(ctx context.Context) (*Report, error) {
	logger := logging.OrDefault(c.Logger)
	report := &Report{Hierarchies: make(map[string][]sysext.Hierarchy)}

	merged := make(map[sysext.Manager][]string)
	for _, m := range sysext.Managers {
		hs, err := c.Status.Status(ctx, m)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("cannot read extension status", "manager", string(m), "error", err)
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s status: %v", m, err))
			continue
		}
		report.Hierarchies[string(m)] = hs
		merged[m] = sysext.MergedNames(hs)
	}

	var local []string
	if c.ExtensionsDir != "" {
		exts, err := extension.List(c.ExtensionsDir)
		switch {
		case errors.Is(err, extension.ErrDirNotFound):
			logger.Debug("extensions directory missing", "path", c.ExtensionsDir)
		case err != nil:
			report.Warnings = append(report.Warnings, err.Error())
		default:
			local = extension.Names(exts)
		}
	}

	var hitl []string
	if c.HITL != nil {
		names, err := c.HITL.Mounted(ctx)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("HITL mounts: %v", err))
		}
		hitl = names
	}

	report.Rows = Build(merged, local, hitl)
	report.Summary = Summarize(report.Rows)
	return report, nil
}

// Build derives rows from merged names per manager, local extensions and
// HITL mounts. Merged rows come first in manager order, then the remaining
// extensions alphabetically.
func Build(merged map[sysext.Manager][]string, local, hitl []string) []Row {
	origin := func(name string) Origin {
		switch {
		case slices.Contains(hitl, name):
			return OriginHITL
		case slices.Contains(local, name):
			return OriginLocal
		default:
			return OriginUnknown
		}
	}

	var rows []Row
	seen := make(map[string]struct{})
	for _, m := range sysext.Managers {
		for _, name := range merged[m] {
			rows = append(rows, Row{Extension: name, Type: m.Label(), Status: StateMerged, Origin: origin(name)})
			seen[name] = struct{}{}
		}
	}

	rest := slices.Concat(local, hitl)
	slices.Sort(rest)
	for _, name := range slices.Compact(rest) {
		if _, ok := seen[name]; ok {
			continue
		}
		rows = append(rows, Row{Extension: name, Type: TypeNone, Status: StateAvailable, Origin: origin(name)})
	}
	return rows
}

// Summarize counts rows by state. HITL counts distinct HITL extensions.
func Summarize(rows []Row) Summary {
	var s Summary
	hitl := make(map[string]struct{})
	for _, r := range rows {
		switch r.Status {
		case StateMerged:
			s.Merged++
		case StateAvailable:
			s.Available++
		}
		if r.Origin == OriginHITL {
			hitl[r.Extension] = struct{}{}
		}
	}
	s.HITL = len(hitl)
	return s
}
