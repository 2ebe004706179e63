// SPDX-License-Identifier: MPL-2.0

// Package cli contains CLI integration tests using testscript.
//
// The avocadoctl binary runs in test mode, so every external tool resolves to
// a mock-* script provided by the test archive.
package cli

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

var (
	// binaryPath is the path to the built avocadoctl binary.
	binaryPath string
	// projectRoot is the path to the avocadoctl project root.
	projectRoot string
)

func TestMain(m *testing.M) {
	wd, err := os.Getwd()
	if err != nil {
		panic("failed to get working directory: " + err.Error())
	}

	// Walk up to find go.mod
	projectRoot = wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			panic("could not find project root (go.mod)")
		}
		projectRoot = parent
	}

	binDir := filepath.Join(projectRoot, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		panic("failed to create bin directory: " + err.Error())
	}
	binaryPath = filepath.Join(binDir, "avocadoctl")

	cmd := exec.CommandContext(context.Background(), "go", "build", "-o", binaryPath, ".")
	cmd.Dir = projectRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build avocadoctl: " + err.Error())
	}

	os.Exit(m.Run())
}

// TestCLI runs all testscript tests in the testdata directory.
func TestCLI(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:   "testdata",
		Setup: commonSetup,
		// Continue running all tests even if one fails
		ContinueOnError: true,
	})
}

// commonSetup puts the binary and the archive's mock tools on PATH and
// switches avocadoctl to test mode with state below $WORK.
func commonSetup(env *testscript.Env) error {
	binDir := filepath.Dir(binaryPath)
	mockDir := filepath.Join(env.WorkDir, "bin")
	env.Setenv("PATH", binDir+string(os.PathListSeparator)+mockDir+string(os.PathListSeparator)+env.Getenv("PATH"))

	env.Setenv("AVOCADO_TEST_MODE", "1")
	env.Setenv("TMPDIR", filepath.Join(env.WorkDir, "tmp"))
	env.Setenv("AVOCADO_EXTENSIONS_PATH", filepath.Join(env.WorkDir, "extensions"))
	env.Setenv("AVOCADO_EXTENSION_RELEASE_DIR", filepath.Join(env.WorkDir, "release"))
	// Plain output keeps the stdout patterns simple.
	env.Setenv("NO_COLOR", "1")
	return os.MkdirAll(filepath.Join(env.WorkDir, "tmp"), 0o755)
}
