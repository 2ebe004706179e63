// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/avocado-linux/avocadoctl/pkg/types"
)

var (
	// ErrCommandNotFound is returned when a tool is not in PATH.
	ErrCommandNotFound = errors.New("command not found")
	// ErrCommandFailed is returned when a tool or command exits non-zero.
	ErrCommandFailed = errors.New("command failed")
)

type (
	// Result holds the outcome of one invocation.
	Result struct {
		ExitCode  types.ExitCode
		Output    string
		ErrOutput string
	}

	// CommandError describes a failed invocation. It wraps ErrCommandNotFound
	// when the tool could not be started and ErrCommandFailed otherwise.
	CommandError struct {
		Command  string
		ExitCode types.ExitCode
		Stderr   string
		Err      error
	}
)

// Error implements the error interface.
func (e *CommandError) Error() string {
	if errors.Is(e.Err, ErrCommandNotFound) {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *CommandError) Unwrap() error { return e.Err }

// Success reports whether the invocation exited with status zero.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode.IsSuccess()
}
