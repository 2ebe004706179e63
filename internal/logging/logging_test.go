// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{name: "default hides debug", verbose: false, wantDebug: false},
		{name: "verbose shows debug", verbose: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := New(&buf, Options{Verbose: tt.verbose})
			logger.Debug("running command", "cmd", "depmod")
			logger.Info("merged extensions", "count", 2)

			out := buf.String()
			if got := strings.Contains(out, "running command"); got != tt.wantDebug {
				t.Errorf("debug line present = %v, want %v; output:\n%s", got, tt.wantDebug, out)
			}
			if !strings.Contains(out, "merged extensions") || !strings.Contains(out, Prefix) {
				t.Errorf("info line missing or unprefixed:\n%s", out)
			}
		})
	}
}

func TestOrDefault(t *testing.T) {
	t.Parallel()

	if OrDefault(nil) != slog.Default() {
		t.Error("OrDefault(nil) should return slog.Default()")
	}
	l := New(&bytes.Buffer{}, Options{})
	if OrDefault(l) != l {
		t.Error("OrDefault(l) should return l")
	}
}
