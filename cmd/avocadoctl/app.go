// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/avocado-linux/avocadoctl/internal/config"
	"github.com/avocado-linux/avocadoctl/internal/enablement"
	"github.com/avocado-linux/avocadoctl/internal/hitl"
	"github.com/avocado-linux/avocadoctl/internal/issue"
	"github.com/avocado-linux/avocadoctl/internal/lifecycle"
	"github.com/avocado-linux/avocadoctl/internal/logging"
	"github.com/avocado-linux/avocadoctl/internal/release"
	"github.com/avocado-linux/avocadoctl/internal/runtime"
	"github.com/avocado-linux/avocadoctl/internal/status"
	"github.com/avocado-linux/avocadoctl/internal/supervisor"
	"github.com/avocado-linux/avocadoctl/internal/sysext"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: command handlers build a Session from it and
	// delegate to the services the session exposes.
	App struct {
		Config    config.Provider
		Runner    runtime.Runner
		Shell     runtime.CommandExecutor
		Mounts    hitl.MountTable
		LookupEnv config.LookupEnv
		Sync      func()
		stdout    io.Writer
		stderr    io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config    config.Provider
		Runner    runtime.Runner
		Shell     runtime.CommandExecutor
		Mounts    hitl.MountTable
		LookupEnv config.LookupEnv
		Sync      func()
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// Session holds the services for one invocation, built from the loaded
	// configuration.
	Session struct {
		Config       *config.Config
		Paths        config.Paths
		Logger       *slog.Logger
		Sysext       *sysext.Client
		Orchestrator *lifecycle.Orchestrator
		HITL         *hitl.Manager
		Enablement   *enablement.Manager
		Status       *status.Collector
	}

	// sessionOptions are the global flag values that shape a Session.
	sessionOptions struct {
		ConfigPath string
		Verbose    bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.LookupEnv == nil {
		deps.LookupEnv = os.LookupEnv
	}

	return &App{
		Config:    deps.Config,
		Runner:    deps.Runner,
		Shell:     deps.Shell,
		Mounts:    deps.Mounts,
		LookupEnv: deps.LookupEnv,
		Sync:      deps.Sync,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
}

// Session loads configuration and builds the services for one command.
func (a *App) Session(ctx context.Context, opts sessionOptions) (*Session, error) {
	logger := logging.Install(a.stderr, logging.Options{Verbose: opts.Verbose})

	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: opts.ConfigPath})
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId, "")
	}
	paths := cfg.Paths(a.LookupEnv)

	sysextMode, err := cfg.Avocado.Ext.SysextMutableMode()
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId, "")
	}
	confextMode, err := cfg.Avocado.Ext.ConfextMutableMode()
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId, "")
	}

	runner := a.Runner
	if runner == nil {
		runner = runtime.NewProcessRunner(paths.TestMode, logger)
	}
	shell := a.Shell
	if shell == nil {
		shell = runtime.NewShell(logger)
	}
	mounts := a.Mounts
	if mounts == nil {
		if paths.TestMode {
			mounts = hitl.PopulatedDirTable{}
		} else {
			mounts = hitl.SystemMountTable{}
		}
	}

	client := sysext.NewClient(runner, logger)
	hitlManager := &hitl.Manager{
		Dir:        paths.HITL,
		DropinDir:  paths.Dropins,
		Supervisor: supervisor.NewClient(runner, logger),
		Mounts:     mounts,
		Retries:    cfg.Avocado.HITL.MountRetries,
		Logger:     logger,
	}

	return &Session{
		Config: cfg,
		Paths:  paths,
		Logger: logger,
		Sysext: client,
		Orchestrator: &lifecycle.Orchestrator{
			Primitive: &sysext.Primitive{Client: client, SysextMode: sysextMode, ConfextMode: confextMode},
			Source:    lifecycle.DirSource(release.Dirs(paths.ReleaseDir)),
			Runner:    runner,
			Shell:     shell,
			Logger:    logger,
			Progress:  a.stdout,
		},
		HITL: hitlManager,
		Enablement: &enablement.Manager{
			ExtensionsDir: paths.Extensions,
			RuntimeDir:    paths.Runtime,
			Logger:        logger,
			Sync:          a.Sync,
		},
		Status: &status.Collector{
			Status:        client,
			ExtensionsDir: paths.Extensions,
			HITL:          hitlManager,
			Logger:        logger,
		},
	}, nil
}
