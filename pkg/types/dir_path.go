// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidDirPath is the sentinel error wrapped by InvalidDirPathError.
var ErrInvalidDirPath = errors.New("invalid directory path")

type (
	// DirPath is an absolute directory path used for the extension, runtime
	// and HITL state locations. The zero value is invalid.
	DirPath string

	// InvalidDirPathError is returned when a DirPath is empty, whitespace-only
	// or relative.
	InvalidDirPathError struct {
		Value  DirPath
		Reason string
	}
)

// String returns the path as a plain string.
func (p DirPath) String() string { return string(p) }

// Join appends elements to the path.
func (p DirPath) Join(elem ...string) string {
	return filepath.Join(append([]string{string(p)}, elem...)...)
}

// IsValid reports whether the path is non-empty and absolute.
func (p DirPath) IsValid() (bool, []error) {
	switch {
	case strings.TrimSpace(string(p)) == "":
		return false, []error{&InvalidDirPathError{Value: p, Reason: "must be non-empty"}}
	case !filepath.IsAbs(string(p)):
		return false, []error{&InvalidDirPathError{Value: p, Reason: "must be absolute"}}
	}
	return true, nil
}

// Error implements the error interface for InvalidDirPathError.
func (e *InvalidDirPathError) Error() string {
	return fmt.Sprintf("invalid directory path %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidDirPath for errors.Is() compatibility.
func (e *InvalidDirPathError) Unwrap() error { return ErrInvalidDirPath }
