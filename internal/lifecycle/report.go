// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"fmt"

	"github.com/avocado-linux/avocadoctl/internal/release"
)

const (
	// OpMerge is the merge operation.
	OpMerge Operation = "merge"
	// OpUnmerge is the unmerge operation.
	OpUnmerge Operation = "unmerge"
	// OpRefresh is the refresh operation.
	OpRefresh Operation = "refresh"

	// StepMerge is the merge primitive.
	StepMerge Step = "merge extensions"
	// StepUnmerge is the unmerge primitive.
	StepUnmerge Step = "unmerge extensions"
	// StepDepmod is the module dependency rebuild.
	StepDepmod Step = "depmod"
)

type (
	// Operation names a lifecycle operation.
	Operation string

	// Step names the step of an operation that failed.
	Step string

	// Outcome is the result of one directive command or module load.
	Outcome struct {
		Name   string
		Output string
		Err    error
	}

	// Report lists what an operation did, in order.
	Report struct {
		Operation   Operation
		Commands    []Outcome
		DepmodRuns  int
		Modules     []Outcome
		Diagnostics []release.Diagnostic
	}

	// StepError is returned when a fatal step of an operation fails.
	StepError struct {
		Op   Operation
		Step Step
		Err  error
	}
)

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Op, e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error { return e.Err }

// Failed returns the outcomes that carry an error.
func Failed(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}
