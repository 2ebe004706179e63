// SPDX-License-Identifier: MPL-2.0

package hitl

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidExtensionName is returned for names that are not a single
	// path element.
	ErrInvalidExtensionName = errors.New("invalid extension name")
	// ErrNoServer is returned when Mount is called without a server address.
	ErrNoServer = errors.New("server address is required")
)

type (
	// ExtensionError is the failure of one extension in a batch.
	ExtensionError struct {
		Extension string
		Step      string
		Err       error
	}

	// BatchError lists every extension that failed in a batch.
	BatchError struct {
		Op       string
		Failures []*ExtensionError
	}
)

// Error implements the error interface.
func (e *ExtensionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Extension, e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtensionError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%s failed for %d extension(s): %s", e.Op, len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap returns the per-extension errors.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Extensions returns the names of the failed extensions in batch order.
func (e *BatchError) Extensions() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Extension
	}
	return names
}

// batch accumulates failures for one operation.
type batch struct {
	op       string
	failures []*ExtensionError
}

func (b *batch) fail(extension, step string, err error) {
	b.failures = append(b.failures, &ExtensionError{Extension: extension, Step: step, Err: err})
}

func (b *batch) err() error {
	if len(b.failures) == 0 {
		return nil
	}
	return &BatchError{Op: b.op, Failures: b.failures}
}

// ValidateName checks that name can be used as a path element and an NFS
// export name.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidExtensionName, name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("%w: %q must not contain '/'", ErrInvalidExtensionName, name)
	}
	return nil
}
