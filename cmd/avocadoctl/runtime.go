// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRuntimeCommand(app *App, flags *rootFlags) *cobra.Command {
	runtimeCmd := &cobra.Command{
		Use:   "runtime",
		Short: "Runtime version management commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	runtimeCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List runtime versions and their enabled extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(app, flags, cmd, func(_ context.Context, s *Session) error {
				versions, err := s.Enablement.Versions()
				if err != nil {
					return err
				}
				if len(versions) == 0 {
					fmt.Fprintf(app.stdout, "No runtime versions found in %s\n", s.Paths.Runtime)
					return nil
				}

				current := runtimeVersion(s, "")
				fmt.Fprintln(app.stdout, TitleStyle.Render("Runtime versions:"))
				for _, v := range versions {
					marker := " "
					if v.Version == current {
						marker = "*"
					}
					fmt.Fprintf(app.stdout, "%s %s (%d extension(s))\n", marker, CmdStyle.Render(v.Version), len(v.Extensions))
					if flags.verbose && len(v.Extensions) > 0 {
						fmt.Fprintf(app.stdout, "    %s\n", SubtitleStyle.Render(strings.Join(v.Extensions, ", ")))
					}
				}
				return nil
			})
		},
	})
	return runtimeCmd
}
