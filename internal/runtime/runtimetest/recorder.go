// SPDX-License-Identifier: MPL-2.0

// Package runtimetest provides a recording fake for runtime.Runner and
// runtime.CommandExecutor.
package runtimetest

import (
	"context"
	"strings"
	"sync"

	"github.com/avocado-linux/avocadoctl/internal/runtime"
	"github.com/avocado-linux/avocadoctl/pkg/types"
)

// ShellPrefix marks shell command events in Recorder.Events.
const ShellPrefix = "sh: "

type (
	// Response is what the Recorder returns for a matching invocation.
	Response struct {
		Output   string
		ExitCode types.ExitCode
	}

	// Recorder records tool invocations and shell commands in call order.
	// Responses are matched by the full command line first, then by the
	// tool name alone. Unmatched invocations succeed with no output.
	Recorder struct {
		Responses map[string]Response

		mu     sync.Mutex
		events []string
	}
)

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{Responses: make(map[string]Response)}
}

// Fail makes invocations matching key exit with status 1.
func (r *Recorder) Fail(key string) *Recorder {
	r.Responses[key] = Response{ExitCode: types.ExitFailure}
	return r
}

// Respond sets the output returned for invocations matching key.
func (r *Recorder) Respond(key, output string) *Recorder {
	r.Responses[key] = Response{Output: output}
	return r
}

// Run implements runtime.Runner.
func (r *Recorder) Run(_ context.Context, name string, args ...string) (*runtime.Result, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	r.record(line)
	return r.respond(name, line)
}

// Execute implements runtime.CommandExecutor.
func (r *Recorder) Execute(_ context.Context, command string) (*runtime.Result, error) {
	r.record(ShellPrefix + command)
	return r.respond(ShellPrefix+command, ShellPrefix+command)
}

// Events returns every recorded invocation in order.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Count returns how many events start with prefix.
func (r *Recorder) Count(prefix string) int {
	n := 0
	for _, e := range r.Events() {
		if e == prefix || strings.HasPrefix(e, prefix+" ") {
			n++
		}
	}
	return n
}

// Index returns the position of the first event starting with prefix, or -1.
func (r *Recorder) Index(prefix string) int {
	for i, e := range r.Events() {
		if e == prefix || strings.HasPrefix(e, prefix+" ") {
			return i
		}
	}
	return -1
}

func (r *Recorder) record(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, line)
}

func (r *Recorder) respond(name, line string) (*runtime.Result, error) {
	resp, ok := r.Responses[line]
	if !ok {
		resp = r.Responses[name]
	}
	result := &runtime.Result{ExitCode: resp.ExitCode, Output: resp.Output}
	if resp.ExitCode.IsSuccess() {
		return result, nil
	}
	return result, &runtime.CommandError{
		Command:  name,
		ExitCode: resp.ExitCode,
		Err:      runtime.ErrCommandFailed,
	}
}
