// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/avocado-linux/avocadoctl/internal/extension"
	"github.com/avocado-linux/avocadoctl/internal/hitl"
	"github.com/avocado-linux/avocadoctl/internal/issue"
	"github.com/avocado-linux/avocadoctl/internal/lifecycle"
	"github.com/avocado-linux/avocadoctl/internal/runtime"
	"github.com/avocado-linux/avocadoctl/pkg/types"
)

// ServiceError is an error that carries optional rendering information for
// the CLI layer. When the CLI layer receives a ServiceError, it renders the
// styled error message (if present) before the issue catalog entry.
// Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// classifyError maps a service failure to the issue catalog entry that
// explains it. Unknown errors map to 0.
func classifyError(err error) issue.Id {
	var (
		stepErr  *lifecycle.StepError
		batchErr *hitl.BatchError
	)
	switch {
	case errors.Is(err, runtime.ErrCommandNotFound):
		return issue.ToolNotFoundId
	case errors.Is(err, fs.ErrPermission):
		return issue.PermissionDeniedId
	case errors.Is(err, extension.ErrDirNotFound):
		return issue.ExtensionsDirNotFoundId
	case errors.Is(err, extension.ErrNotFound):
		return issue.ExtensionNotFoundId
	case lifecycle.IsDepmodFailure(err):
		return issue.DepmodFailedId
	case errors.As(err, &stepErr):
		switch stepErr.Step {
		case lifecycle.StepMerge:
			return issue.MergeFailedId
		case lifecycle.StepUnmerge:
			return issue.UnmergeFailedId
		}
	case errors.As(err, &batchErr):
		if batchErr.Op == hitl.OpUnmount {
			return issue.UnmountFailedId
		}
		return issue.MountFailedId
	}
	return 0
}

// renderServiceError renders a ServiceError in the CLI layer.
// It prints any styled message first, then the optional issue help section.
func renderServiceError(stderr io.Writer, svcErr *ServiceError) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprint(stderr, svcErr.StyledMessage)
	}

	if svcErr.IssueID == 0 {
		return
	}

	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render("dark")
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
		} else {
			fmt.Fprint(stderr, rendered)
		}
	}
}

// report prints err for the user and converts it into an *ExitError so the
// top-level handler does not print it again.
func report(stderr io.Writer, err error, verbose bool) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		svcErr = newServiceError(err, classifyError(err), "")
	}
	if svcErr.StyledMessage == "" {
		svcErr.StyledMessage = ErrorStyle.Render("Error: ") + formatErrorForDisplay(svcErr.Err, verbose) + "\n"
	}
	if !verbose && svcErr.IssueID != issue.ConfigLoadFailedId {
		svcErr.IssueID = 0
	}
	renderServiceError(stderr, svcErr)
	return &ExitError{Code: types.ExitFailure, Err: err}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
