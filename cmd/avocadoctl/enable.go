// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/avocado-linux/avocadoctl/internal/enablement"
	"github.com/avocado-linux/avocadoctl/pkg/types"

	"github.com/spf13/cobra"
)

// runtimeVersion returns the --runtime value or the OS VERSION_ID.
func runtimeVersion(s *Session, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return enablement.DefaultRuntimeVersion(s.Paths.OSRelease)
}

func newEnableCommand(app *App, flags *rootFlags) *cobra.Command {
	var runtime string
	cmd := &cobra.Command{
		Use:   "enable [flags] <extension>...",
		Short: "Enable extensions for a specific runtime version",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(app, flags, cmd, func(_ context.Context, s *Session) error {
				version := runtimeVersion(s, runtime)
				fmt.Fprintf(app.stdout, "Enabling extensions for runtime version: %s\n", version)

				res, err := s.Enablement.Enable(version, args)
				if err != nil {
					return err
				}
				for _, name := range res.Changed {
					fmt.Fprintf(app.stdout, "Enabled extension: %s\n", name)
				}
				if len(res.Changed) > 0 {
					fmt.Fprintf(app.stdout, "Successfully enabled %d extension(s) for runtime %s\n", len(res.Changed), version)
					fmt.Fprintln(app.stdout, "Synced changes to disk")
				}
				return reportFailures(app, res.Failures)
			})
		},
	}
	cmd.Flags().StringVarP(&runtime, "runtime", "r", "", "runtime version (default is VERSION_ID from os-release)")
	return cmd
}

func newDisableCommand(app *App, flags *rootFlags) *cobra.Command {
	var (
		runtime string
		all     bool
	)
	cmd := &cobra.Command{
		Use:   "disable [flags] (<extension>... | --all)",
		Short: "Disable extensions for a specific runtime version",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("--all cannot be combined with extension names")
			}
			if !all && len(args) == 0 {
				return errors.New("requires at least 1 extension name or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(app, flags, cmd, func(_ context.Context, s *Session) error {
				version := runtimeVersion(s, runtime)
				fmt.Fprintf(app.stdout, "Disabling extensions for runtime version: %s\n", version)

				var (
					res *enablement.Result
					err error
				)
				if all {
					fmt.Fprintln(app.stdout, "Removing all extensions")
					res, err = s.Enablement.DisableAll(version)
				} else {
					res, err = s.Enablement.Disable(version, args)
				}
				if err != nil {
					return err
				}
				for _, name := range res.Changed {
					fmt.Fprintf(app.stdout, "Disabled extension: %s\n", name)
				}
				fmt.Fprintf(app.stdout, "Successfully disabled %d extension(s)\n", len(res.Changed))
				if len(res.Changed) > 0 {
					fmt.Fprintln(app.stdout, "Synced changes to disk")
				}
				return reportFailures(app, res.Failures)
			})
		},
	}
	cmd.Flags().StringVarP(&runtime, "runtime", "r", "", "runtime version (default is VERSION_ID from os-release)")
	cmd.Flags().BoolVar(&all, "all", false, "disable every extension of the runtime")
	return cmd
}

// reportFailures prints per-extension failures and turns them into a
// non-zero exit.
func reportFailures(app *App, failures []error) error {
	if len(failures) == 0 {
		return nil
	}
	for _, f := range failures {
		fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+f.Error())
	}
	return &ExitError{Code: types.ExitFailure, Err: errors.Join(failures...)}
}
