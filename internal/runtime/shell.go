// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/avocado-linux/avocadoctl/internal/logging"
	"github.com/avocado-linux/avocadoctl/pkg/types"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrSyntax is returned when a command string is not valid shell.
var ErrSyntax = errors.New("invalid shell syntax")

type (
	// CommandExecutor runs one directive command string.
	CommandExecutor interface {
		Execute(ctx context.Context, command string) (*Result, error)
	}

	// Shell executes command strings with the embedded POSIX shell
	// interpreter. External programs are started from PATH.
	Shell struct {
		// Dir is the working directory. Empty means the current directory.
		Dir string
		// Env replaces the inherited environment when non-nil.
		Env []string
		// Logger receives one debug line per external program started.
		Logger *slog.Logger
	}
)

// NewShell creates a Shell inheriting the process environment.
func NewShell(logger *slog.Logger) *Shell {
	return &Shell{Logger: logger}
}

// Execute parses command as a single program and runs it. Output is
// captured. A non-zero exit yields both the Result and a *CommandError.
func (s *Shell) Execute(ctx context.Context, command string) (*Result, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return &Result{ExitCode: types.ExitFailure}, &CommandError{
			Command:  command,
			ExitCode: types.ExitFailure,
			Err:      fmt.Errorf("%w: %w", ErrSyntax, err),
		}
	}

	env := s.Env
	if env == nil {
		env = os.Environ()
	}

	var stdout, stderr bytes.Buffer
	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, &stdout, &stderr),
		interp.ExecHandlers(s.execHandler),
	}
	if s.Dir != "" {
		opts = append(opts, interp.Dir(s.Dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return &Result{ExitCode: types.ExitFailure}, &CommandError{
			Command:  command,
			ExitCode: types.ExitFailure,
			Err:      fmt.Errorf("create interpreter: %w", err),
		}
	}

	err = runner.Run(ctx, prog)
	result := &Result{Output: stdout.String(), ErrOutput: stderr.String()}
	if err == nil {
		return result, nil
	}

	var exitStatus interp.ExitStatus
	if errors.As(err, &exitStatus) {
		result.ExitCode = types.ExitCode(exitStatus)
		return result, &CommandError{
			Command:  command,
			ExitCode: result.ExitCode,
			Stderr:   result.ErrOutput,
			Err:      ErrCommandFailed,
		}
	}

	result.ExitCode = types.ExitFailure
	return result, &CommandError{Command: command, ExitCode: result.ExitCode, Stderr: result.ErrOutput, Err: err}
}

func (s *Shell) execHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		logging.OrDefault(s.Logger).Debug("exec", "args", strings.Join(args, " "))
		return next(ctx, args)
	}
}
