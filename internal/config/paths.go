// SPDX-License-Identifier: MPL-2.0

package config

import (
	"os"
	"path/filepath"
)

// TestModeEnv redirects state directories below $TMPDIR and tools to mock binaries.
const TestModeEnv = "AVOCADO_TEST_MODE"

type (
	// LookupEnv is the signature of os.LookupEnv.
	LookupEnv func(key string) (string, bool)

	// Paths are the effective filesystem locations for one invocation.
	Paths struct {
		Extensions string
		ReleaseDir string
		HITL       string
		Dropins    string
		Runtime    string
		OSRelease  string
		TestMode   bool
	}
)

// Paths resolves the locations used by commands. In test mode the HITL,
// drop-in and runtime directories move below $TMPDIR.
func (c *Config) Paths(lookup LookupEnv) Paths {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	p := Paths{
		Extensions: c.Avocado.Ext.Dir.String(),
		ReleaseDir: c.Avocado.Ext.ReleaseDir,
		HITL:       c.Avocado.HITL.Dir.String(),
		Dropins:    c.Avocado.HITL.DropinDir.String(),
		Runtime:    c.Avocado.Runtime.Dir.String(),
		OSRelease:  c.Avocado.Runtime.OSRelease,
	}

	if _, ok := lookup(TestModeEnv); ok {
		tmp, ok := lookup("TMPDIR")
		if !ok || tmp == "" {
			tmp = "/tmp"
		}
		p.TestMode = true
		p.HITL = filepath.Join(tmp, "avocado", "hitl")
		p.Dropins = filepath.Join(tmp, "run", "systemd", "system")
		p.Runtime = filepath.Join(tmp, "avocado", "runtime")
	}
	return p
}
