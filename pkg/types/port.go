// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

// DefaultNFSPort is the port the HITL NFS server listens on unless told otherwise.
const DefaultNFSPort Port = 12049

// ErrInvalidPort is the sentinel error wrapped by InvalidPortError.
var ErrInvalidPort = errors.New("invalid port")

type (
	// Port is a TCP port of a remote server. Valid values are 1-65535.
	Port int

	// InvalidPortError is returned when a Port is outside 1-65535.
	InvalidPortError struct {
		Value Port
	}
)

// String returns the decimal representation of the Port.
func (p Port) String() string { return strconv.Itoa(int(p)) }

// IsValid reports whether the port can be dialled.
func (p Port) IsValid() (bool, []error) {
	if p < 1 || p > 65535 {
		return false, []error{&InvalidPortError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidPortError.
func (e *InvalidPortError) Error() string {
	return fmt.Sprintf("invalid port %d: must be 1-65535", e.Value)
}

// Unwrap returns ErrInvalidPort for errors.Is() compatibility.
func (e *InvalidPortError) Unwrap() error { return ErrInvalidPort }
