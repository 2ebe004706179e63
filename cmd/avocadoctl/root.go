// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/avocado-linux/avocadoctl/internal/config"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlags holds the persistent flags shared by every command.
type rootFlags struct {
	verbose    bool
	configPath string
}

func (f *rootFlags) sessionOptions() sessionOptions {
	return sessionOptions{ConfigPath: f.configPath, Verbose: f.verbose}
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Avocado Linux system management CLI",
		Long: TitleStyle.Render(config.AppName) + SubtitleStyle.Render(" - Avocado Linux system management CLI") + `

avocadoctl merges system and configuration extensions with systemd-sysext
and systemd-confext, runs the hooks extensions declare in their release
files, and mounts extensions over NFS for hardware-in-the-loop testing.

` + SubtitleStyle.Render("Examples:") + `
  avocadoctl list                         List available extensions
  avocadoctl merge                        Merge extensions and run hooks
  avocadoctl status                       Show merged extensions
  avocadoctl enable --runtime 1.0 my-ext  Enable an extension for a runtime
  avocadoctl hitl mount -s 10.0.0.1 -e my-ext`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default is "+config.DefaultConfigPath+")")

	rootCmd.AddCommand(
		newExtCommand(app, flags),
		newListCommand(app, flags),
		newMergeCommand(app, flags),
		newUnmergeCommand(app, flags),
		newRefreshCommand(app, flags),
		newStatusCommand(app, flags),
		newEnableCommand(app, flags),
		newDisableCommand(app, flags),
		newRuntimeCommand(app, flags),
		newHITLCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// handleError prints errors that the command handlers have not reported yet.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}
