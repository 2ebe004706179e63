// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/avocado-linux/avocadoctl/internal/logging"
	"github.com/avocado-linux/avocadoctl/pkg/types"
)

const (
	// TestModeEnv switches tool resolution to mock binaries when set.
	TestModeEnv = "AVOCADO_TEST_MODE"
	// MockPrefix is prepended to tool names in test mode.
	MockPrefix = "mock-"
)

type (
	// Runner invokes an external tool and waits for it.
	Runner interface {
		Run(ctx context.Context, name string, args ...string) (*Result, error)
	}

	// ProcessRunner runs tools as subprocesses with captured output.
	ProcessRunner struct {
		// TestMode resolves every tool as MockPrefix+name.
		TestMode bool
		// Env replaces the inherited environment when non-nil.
		Env []string
		// Logger receives one debug line per invocation.
		Logger *slog.Logger
	}
)

// NewProcessRunner creates a ProcessRunner.
func NewProcessRunner(testMode bool, logger *slog.Logger) *ProcessRunner {
	return &ProcessRunner{TestMode: testMode, Logger: logger}
}

// Resolve returns the executable name used for tool name.
func (r *ProcessRunner) Resolve(name string) string {
	if r.TestMode {
		return MockPrefix + name
	}
	return name
}

// Run executes the tool and returns its captured output. A non-zero exit
// yields both the Result and a *CommandError.
func (r *ProcessRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	bin := r.Resolve(name)
	logging.OrDefault(r.Logger).Debug("Running command", "cmd", bin, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, bin, args...)
	if r.Env != nil {
		cmd.Env = r.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{Output: stdout.String(), ErrOutput: stderr.String()}
	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = types.ExitCode(exitErr.ExitCode())
		if valid, _ := result.ExitCode.IsValid(); !valid {
			// Killed by a signal.
			result.ExitCode = types.ExitFailure
		}
		return result, &CommandError{
			Command:  name,
			ExitCode: result.ExitCode,
			Stderr:   result.ErrOutput,
			Err:      ErrCommandFailed,
		}
	}

	result.ExitCode = types.ExitFailure
	cause := err
	if errors.Is(err, exec.ErrNotFound) {
		cause = fmt.Errorf("%w: %s", ErrCommandNotFound, bin)
	}
	return result, &CommandError{Command: name, ExitCode: result.ExitCode, Err: cause}
}
