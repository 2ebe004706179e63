// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/avocado-linux/avocadoctl/internal/logging"
	"github.com/avocado-linux/avocadoctl/internal/release"
	"github.com/avocado-linux/avocadoctl/internal/runtime"
)

const (
	// DepmodTrigger is the AVOCADO_ON_MERGE value that requests a module
	// dependency rebuild instead of naming a command.
	DepmodTrigger = "depmod"

	depmodTool   = "depmod"
	modprobeTool = "modprobe"
)

type (
	// Primitive merges and unmerges the extension images.
	Primitive interface {
		Merge(ctx context.Context) error
		Unmerge(ctx context.Context) error
	}

	// Source lists the release files of the currently merged extensions.
	Source interface {
		Extensions() ([]release.Extension, []release.Diagnostic)
	}

	// DirSource scans release directories.
	DirSource []string

	// Orchestrator runs the lifecycle operations. Runner invokes depmod and
	// modprobe, Shell runs directive commands.
	Orchestrator struct {
		Primitive Primitive
		Source    Source
		Runner    runtime.Runner
		Shell     runtime.CommandExecutor
		Logger    *slog.Logger
		// Progress receives user-facing progress lines. Nil discards them.
		Progress io.Writer
	}

	// UnmergeOptions controls Unmerge.
	UnmergeOptions struct {
		// SkipDepmod leaves module dependencies untouched.
		SkipDepmod bool
	}
)

// Extensions implements Source.
func (d DirSource) Extensions() ([]release.Extension, []release.Diagnostic) {
	return release.Scan(d)
}

// Merge merges extensions and runs post-merge processing.
func (o *Orchestrator) Merge(ctx context.Context) (*Report, error) {
	report := &Report{Operation: OpMerge}
	if err := o.merge(ctx, report); err != nil {
		return report, err
	}
	return report, nil
}

// Unmerge runs pre-unmerge commands, unmerges extensions and, unless
// skipped, rebuilds module dependencies.
func (o *Orchestrator) Unmerge(ctx context.Context, opts UnmergeOptions) (*Report, error) {
	report := &Report{Operation: OpUnmerge}
	if err := o.unmerge(ctx, report, opts); err != nil {
		return report, err
	}
	return report, nil
}

// Refresh unmerges without rebuilding, then merges.
func (o *Orchestrator) Refresh(ctx context.Context) (*Report, error) {
	report := &Report{Operation: OpRefresh}
	if err := o.unmerge(ctx, report, UnmergeOptions{SkipDepmod: true}); err != nil {
		return report, err
	}
	if err := o.merge(ctx, report); err != nil {
		return report, err
	}
	return report, nil
}

func (o *Orchestrator) merge(ctx context.Context, report *Report) error {
	if err := o.Primitive.Merge(ctx); err != nil {
		return &StepError{Op: report.Operation, Step: StepMerge, Err: err}
	}

	catalog := o.load(report)
	commands := catalog.Actions(release.KindOnMerge)
	o.warn(report, commands.Diagnostics)

	o.runCommands(ctx, report, release.KindOnMerge, commands.Without(DepmodTrigger))

	if !commands.Contains(DepmodTrigger) {
		return nil
	}
	if err := o.depmod(ctx, report); err != nil {
		return &StepError{Op: report.Operation, Step: StepDepmod, Err: err}
	}

	modules := catalog.Actions(release.KindModprobe)
	o.warn(report, modules.Diagnostics)
	o.loadModules(ctx, report, modules.Items)
	return nil
}

func (o *Orchestrator) unmerge(ctx context.Context, report *Report, opts UnmergeOptions) error {
	catalog := o.load(report)
	commands := catalog.Actions(release.KindOnUnmerge)
	o.warn(report, commands.Diagnostics)
	o.runCommands(ctx, report, release.KindOnUnmerge, commands.Items)

	if err := o.Primitive.Unmerge(ctx); err != nil {
		return &StepError{Op: report.Operation, Step: StepUnmerge, Err: err}
	}

	if opts.SkipDepmod {
		return nil
	}
	if err := o.depmod(ctx, report); err != nil {
		return &StepError{Op: report.Operation, Step: StepDepmod, Err: err}
	}
	return nil
}

func (o *Orchestrator) load(report *Report) *release.Catalog {
	var exts []release.Extension
	if o.Source != nil {
		var diags []release.Diagnostic
		exts, diags = o.Source.Extensions()
		o.warn(report, diags)
	}
	catalog := release.Load(exts)
	o.warn(report, catalog.Diagnostics())
	return catalog
}

func (o *Orchestrator) runCommands(ctx context.Context, report *Report, kind release.Kind, commands []string) {
	logger := logging.OrDefault(o.Logger)
	for _, command := range commands {
		outcome := Outcome{Name: command}
		res, err := o.Shell.Execute(ctx, command)
		if res != nil {
			outcome.Output = res.Output
		}
		if err != nil {
			outcome.Err = err
			logger.Warn("directive command failed", "directive", kind.Key(), "command", command, "error", err)
		} else {
			logger.Info("ran directive command", "directive", kind.Key(), "command", command)
		}
		report.Commands = append(report.Commands, outcome)
	}
}

func (o *Orchestrator) depmod(ctx context.Context, report *Report) error {
	o.printf("Running depmod to update kernel module dependencies...\n")
	report.DepmodRuns++
	if _, err := o.Runner.Run(ctx, depmodTool); err != nil {
		return err
	}
	o.printf("depmod completed successfully.\n")
	return nil
}

func (o *Orchestrator) loadModules(ctx context.Context, report *Report, modules []string) {
	if len(modules) == 0 {
		return
	}
	logger := logging.OrDefault(o.Logger)
	o.printf("Loading kernel modules: %s\n", strings.Join(modules, " "))
	for _, module := range modules {
		outcome := Outcome{Name: module}
		if _, err := o.Runner.Run(ctx, modprobeTool, module); err != nil {
			outcome.Err = err
			logger.Warn("failed to load kernel module", "module", module, "error", err)
		}
		report.Modules = append(report.Modules, outcome)
	}
}

func (o *Orchestrator) warn(report *Report, diags []release.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	logger := logging.OrDefault(o.Logger)
	for _, d := range diags {
		if d.Code == release.CodeReleaseFileMissing {
			logger.Debug(d.String())
		} else {
			logger.Warn(d.String())
		}
	}
	report.Diagnostics = append(report.Diagnostics, diags...)
}

func (o *Orchestrator) printf(format string, args ...any) {
	if o.Progress == nil {
		return
	}
	_, _ = fmt.Fprintf(o.Progress, format, args...)
}

// IsDepmodFailure reports whether err came from the dependency rebuild.
func IsDepmodFailure(err error) bool {
	var stepErr *StepError
	return errors.As(err, &stepErr) && stepErr.Step == StepDepmod
}
