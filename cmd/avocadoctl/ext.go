// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/avocado-linux/avocadoctl/internal/extension"
	"github.com/avocado-linux/avocadoctl/internal/issue"
	"github.com/avocado-linux/avocadoctl/internal/lifecycle"
	"github.com/avocado-linux/avocadoctl/internal/status"

	"github.com/spf13/cobra"
)

// newExtCommand creates the legacy `avocadoctl ext` group. Its subcommands
// are the same as the top-level lifecycle commands.
func newExtCommand(app *App, flags *rootFlags) *cobra.Command {
	extCmd := &cobra.Command{
		Use:   "ext",
		Short: "Extension management commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	extCmd.AddCommand(
		newListCommand(app, flags),
		newMergeCommand(app, flags),
		newUnmergeCommand(app, flags),
		newRefreshCommand(app, flags),
		newStatusCommand(app, flags),
	)
	return extCmd
}

// withSession builds the session for cmd and runs fn with it. Errors are
// reported to stderr and returned as *ExitError.
func withSession(app *App, flags *rootFlags, cmd *cobra.Command, fn func(ctx context.Context, s *Session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := app.Session(ctx, flags.sessionOptions())
	if err == nil {
		err = fn(ctx, s)
	}
	return report(app.stderr, err, flags.verbose)
}

func newListCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all available extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(app, flags, cmd, func(_ context.Context, s *Session) error {
				return listExtensions(app, s)
			})
		},
	}
}

func listExtensions(app *App, s *Session) error {
	exts, err := extension.List(s.Paths.Extensions)
	if err != nil {
		if errors.Is(err, extension.ErrDirNotFound) {
			return newServiceError(issue.NewErrorContext().
				WithOperation("list extensions").
				WithResource(s.Paths.Extensions).
				WithSuggestion("Make sure the directory exists and you have read permissions").
				WithSuggestion("Set AVOCADO_EXTENSIONS_PATH or avocado.ext.dir to another location").
				Wrap(err).
				BuildError(), issue.ExtensionsDirNotFoundId, "")
		}
		return err
	}

	names := extension.Names(exts)
	if len(names) == 0 {
		fmt.Fprintf(app.stdout, "No extensions found in %s\n", s.Paths.Extensions)
		return nil
	}
	fmt.Fprintln(app.stdout, TitleStyle.Render("Available extensions:"))
	for _, name := range names {
		fmt.Fprintf(app.stdout, "  %s\n", name)
	}
	return nil
}

func newMergeCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge extensions using systemd-sysext and systemd-confext",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(app, flags, cmd, func(ctx context.Context, s *Session) error {
				fmt.Fprintln(app.stdout, "Merging extensions...")
				rep, err := s.Orchestrator.Merge(ctx)
				warnFailures(app, rep)
				if err != nil {
					return err
				}
				fmt.Fprintln(app.stdout, SuccessStyle.Render("Extensions merged successfully."))
				return nil
			})
		},
	}
}

func newUnmergeCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unmerge",
		Short: "Unmerge extensions using systemd-sysext and systemd-confext",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(app, flags, cmd, func(ctx context.Context, s *Session) error {
				fmt.Fprintln(app.stdout, "Unmerging extensions...")
				rep, err := s.Orchestrator.Unmerge(ctx, lifecycle.UnmergeOptions{})
				warnFailures(app, rep)
				if err != nil {
					return err
				}
				fmt.Fprintln(app.stdout, SuccessStyle.Render("Extensions unmerged successfully."))
				return nil
			})
		},
	}
}

func newRefreshCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Unmerge and then merge extensions (refresh extensions)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(app, flags, cmd, func(ctx context.Context, s *Session) error {
				return refresh(ctx, app, s)
			})
		},
	}
}

func refresh(ctx context.Context, app *App, s *Session) error {
	fmt.Fprintln(app.stdout, "Refreshing extensions (unmerge then merge)...")
	rep, err := s.Orchestrator.Refresh(ctx)
	warnFailures(app, rep)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.stdout, SuccessStyle.Render("Extensions refreshed successfully."))
	return nil
}

// warnFailures prints the hook commands and modules that failed. They do
// not fail the operation.
func warnFailures(app *App, rep *lifecycle.Report) {
	if rep == nil {
		return
	}
	for _, o := range lifecycle.Failed(rep.Commands) {
		fmt.Fprintln(app.stderr, WarningStyle.Render("Warning: ")+fmt.Sprintf("command '%s' failed: %v", o.Name, o.Err))
	}
	for _, o := range lifecycle.Failed(rep.Modules) {
		fmt.Fprintln(app.stderr, WarningStyle.Render("Warning: ")+fmt.Sprintf("failed to load module %s: %v", o.Name, o.Err))
	}
}

func newStatusCommand(app *App, flags *rootFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of merged extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(app, flags, cmd, func(ctx context.Context, s *Session) error {
				format := status.Format(output)
				if valid, errs := format.IsValid(); !valid {
					return errs[0]
				}
				rep, err := s.Status.Collect(ctx)
				if err != nil {
					return err
				}
				return status.Render(app.stdout, rep, format, statusStyles())
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(status.FormatTable), "output format: table, json or yaml")
	return cmd
}
