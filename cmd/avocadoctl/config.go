// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/avocado-linux/avocadoctl/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect avocadoctl configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(app, flags, cmd, func(_ context.Context, s *Session) error {
					return showConfig(app, flags, s)
				})
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path := config.ResolvePath(config.LoadOptions{ConfigFilePath: flags.configPath})
				if path == "" {
					fmt.Fprintf(app.stdout, "%s (not found, using defaults)\n", config.DefaultConfigPath)
					return nil
				}
				fmt.Fprintln(app.stdout, path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "dump",
			Short: "Print the effective configuration as TOML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(app, flags, cmd, func(_ context.Context, s *Session) error {
					data, err := s.Config.TOML()
					if err != nil {
						return err
					}
					_, err = app.stdout.Write(data)
					return err
				})
			},
		},
	)
	return configCmd
}

func showConfig(app *App, flags *rootFlags, s *Session) error {
	ext := s.Config.Avocado.Ext
	sysextMode, err := ext.SysextMutableMode()
	if err != nil {
		return err
	}
	confextMode, err := ext.ConfextMutableMode()
	if err != nil {
		return err
	}

	source := config.ResolvePath(config.LoadOptions{ConfigFilePath: flags.configPath})
	if source == "" {
		source = "(defaults)"
	}

	w := app.stdout
	fmt.Fprintln(w, TitleStyle.Render("Configuration"))
	fmt.Fprintf(w, "  %-18s %s\n", "Source:", source)
	fmt.Fprintf(w, "  %-18s %s\n", "Extensions:", s.Paths.Extensions)
	releaseDir := s.Paths.ReleaseDir
	if releaseDir == "" {
		releaseDir = "(system)"
	}
	fmt.Fprintf(w, "  %-18s %s\n", "Release dir:", releaseDir)
	fmt.Fprintf(w, "  %-18s %s\n", "Sysext mutable:", sysextMode)
	fmt.Fprintf(w, "  %-18s %s\n", "Confext mutable:", confextMode)
	fmt.Fprintf(w, "  %-18s %s\n", "HITL dir:", s.Paths.HITL)
	fmt.Fprintf(w, "  %-18s %s\n", "Drop-in dir:", s.Paths.Dropins)
	fmt.Fprintf(w, "  %-18s %d\n", "HITL port:", s.Config.Avocado.HITL.Port)
	fmt.Fprintf(w, "  %-18s %d\n", "Mount retries:", s.Config.Avocado.HITL.MountRetries)
	fmt.Fprintf(w, "  %-18s %s\n", "Runtime dir:", s.Paths.Runtime)
	if s.Paths.TestMode {
		fmt.Fprintf(w, "  %-18s %s\n", "Test mode:", "enabled")
	}
	return nil
}
