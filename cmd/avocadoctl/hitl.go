// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/avocado-linux/avocadoctl/internal/hitl"
	"github.com/avocado-linux/avocadoctl/internal/lifecycle"
	"github.com/avocado-linux/avocadoctl/pkg/types"

	"github.com/spf13/cobra"
)

func newHITLCommand(app *App, flags *rootFlags) *cobra.Command {
	hitlCmd := &cobra.Command{
		Use:   "hitl",
		Short: "Hardware-in-the-loop (HITL) testing commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	hitlCmd.AddCommand(
		newHITLMountCommand(app, flags),
		newHITLUnmountCommand(app, flags),
	)
	return hitlCmd
}

func newHITLMountCommand(app *App, flags *rootFlags) *cobra.Command {
	var (
		server     string
		port       int
		extensions []string
	)
	cmd := &cobra.Command{
		Use:   "mount",
		Short: "Mount NFS extensions from a HITL server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(app, flags, cmd, func(ctx context.Context, s *Session) error {
				req := hitl.MountRequest{
					Server:     server,
					Port:       types.Port(port),
					Extensions: extensions,
				}
				if !cmd.Flags().Changed("server-port") {
					req.Port = s.Config.Avocado.HITL.Port
				}

				if flags.verbose {
					fmt.Fprintf(app.stdout, "Mounting HITL extensions from %s:%d\n", server, req.Port)
				} else {
					fmt.Fprintln(app.stdout, "Mounting HITL extensions...")
				}

				_, err := s.HITL.Mount(ctx, req)
				if err != nil {
					return batchFailure(app, err, "Some extensions failed to mount.")
				}
				fmt.Fprintln(app.stdout, SuccessStyle.Render("Extensions mounted."))
				return refresh(ctx, app, s)
			})
		},
	}
	cmd.Flags().StringVarP(&server, "server-ip", "s", "", "NFS server IP address")
	cmd.Flags().IntVarP(&port, "server-port", "p", int(types.DefaultNFSPort), "NFS server port")
	cmd.Flags().StringArrayVarP(&extensions, "extension", "e", nil, "extension name to mount (repeatable)")
	_ = cmd.MarkFlagRequired("server-ip")
	_ = cmd.MarkFlagRequired("extension")
	return cmd
}

func newHITLUnmountCommand(app *App, flags *rootFlags) *cobra.Command {
	var extensions []string
	cmd := &cobra.Command{
		Use:   "unmount",
		Short: "Unmount NFS extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(app, flags, cmd, func(ctx context.Context, s *Session) error {
				fmt.Fprintln(app.stdout, "Unmerging extensions...")
				rep, err := s.Orchestrator.Unmerge(ctx, lifecycle.UnmergeOptions{SkipDepmod: true})
				warnFailures(app, rep)
				if err != nil {
					return err
				}

				fmt.Fprintln(app.stdout, "Unmounting HITL extensions...")
				if _, err := s.HITL.Unmount(ctx, extensions); err != nil {
					return batchFailure(app, err, "Some extensions failed to unmount.")
				}
				fmt.Fprintln(app.stdout, SuccessStyle.Render("Extensions unmounted."))

				fmt.Fprintln(app.stdout, "Merging extensions...")
				rep, err = s.Orchestrator.Merge(ctx)
				warnFailures(app, rep)
				if err != nil {
					return err
				}
				fmt.Fprintln(app.stdout, SuccessStyle.Render("Extensions merged successfully."))
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&extensions, "extension", "e", nil, "extension name to unmount (repeatable)")
	_ = cmd.MarkFlagRequired("extension")
	return cmd
}

// batchFailure prints one line per failed extension followed by summary.
// Errors other than *hitl.BatchError are returned unchanged.
func batchFailure(app *App, err error, summary string) error {
	var batchErr *hitl.BatchError
	if !errors.As(err, &batchErr) {
		return err
	}
	for _, f := range batchErr.Failures {
		fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+f.Error())
	}
	fmt.Fprintln(app.stderr, summary)
	return &ExitError{Code: types.ExitFailure, Err: err}
}
