// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/avocado-linux/avocadoctl/pkg/types"
)

const (
	// MutableNo merges read-only.
	MutableNo MutableMode = "no"
	// MutableAuto lets systemd pick based on the presence of upper dirs.
	MutableAuto MutableMode = "auto"
	// MutableYes merges with a persistent writable upper layer.
	MutableYes MutableMode = "yes"
	// MutableImport merges the upper layer as a read-only lower layer.
	MutableImport MutableMode = "import"
	// MutableEphemeral merges with a writable layer discarded on unmerge.
	MutableEphemeral MutableMode = "ephemeral"
	// MutableEphemeralImport is MutableImport with an ephemeral writable layer.
	MutableEphemeralImport MutableMode = "ephemeral-import"

	// DefaultMutable is used when neither a specific nor the legacy key is set.
	DefaultMutable = MutableEphemeral
)

// ErrInvalidMutableMode is the sentinel error wrapped by InvalidMutableModeError.
var ErrInvalidMutableMode = errors.New("invalid mutable mode")

var validMutableModes = []MutableMode{
	MutableNo, MutableAuto, MutableYes, MutableImport, MutableEphemeral, MutableEphemeralImport,
}

type (
	// MutableMode is the --mutable argument passed to systemd-sysext and
	// systemd-confext.
	MutableMode string

	// InvalidMutableModeError is returned for a MutableMode outside the
	// supported set. It wraps ErrInvalidMutableMode.
	InvalidMutableModeError struct {
		Value MutableMode
	}

	// Config is the root of the configuration file.
	Config struct {
		Avocado AvocadoConfig `json:"avocado" mapstructure:"avocado" toml:"avocado" yaml:"avocado"`
	}

	// AvocadoConfig groups the [avocado.*] tables.
	AvocadoConfig struct {
		Ext     ExtConfig     `json:"ext" mapstructure:"ext" toml:"ext" yaml:"ext"`
		HITL    HITLConfig    `json:"hitl" mapstructure:"hitl" toml:"hitl" yaml:"hitl"`
		Runtime RuntimeConfig `json:"runtime" mapstructure:"runtime" toml:"runtime" yaml:"runtime"`
	}

	// ExtConfig is the [avocado.ext] table.
	ExtConfig struct {
		// Dir holds extension directories and .raw images.
		Dir types.DirPath `json:"dir" mapstructure:"dir" toml:"dir" yaml:"dir"`
		// ReleaseDir replaces the host extension-release.d locations.
		ReleaseDir string `json:"release_dir,omitempty" mapstructure:"release_dir" toml:"release_dir,omitempty" yaml:"release_dir,omitempty"`
		// SysextMutable is the mutable mode for system extensions.
		SysextMutable MutableMode `json:"sysext_mutable,omitempty" mapstructure:"sysext_mutable" toml:"sysext_mutable,omitempty" yaml:"sysext_mutable,omitempty"`
		// ConfextMutable is the mutable mode for configuration extensions.
		ConfextMutable MutableMode `json:"confext_mutable,omitempty" mapstructure:"confext_mutable" toml:"confext_mutable,omitempty" yaml:"confext_mutable,omitempty"`
		// Mutable is the legacy mode applied to both when the specific key is unset.
		Mutable MutableMode `json:"mutable,omitempty" mapstructure:"mutable" toml:"mutable,omitempty" yaml:"mutable,omitempty"`
	}

	// HITLConfig is the [avocado.hitl] table.
	HITLConfig struct {
		Dir          types.DirPath `json:"dir" mapstructure:"dir" toml:"dir" yaml:"dir"`
		DropinDir    types.DirPath `json:"dropin_dir" mapstructure:"dropin_dir" toml:"dropin_dir" yaml:"dropin_dir"`
		Port         types.Port    `json:"port" mapstructure:"port" toml:"port" yaml:"port"`
		MountRetries int           `json:"mount_retries" mapstructure:"mount_retries" toml:"mount_retries" yaml:"mount_retries"`
	}

	// RuntimeConfig is the [avocado.runtime] table.
	RuntimeConfig struct {
		// Dir holds one directory of enabled-extension links per runtime version.
		Dir types.DirPath `json:"dir" mapstructure:"dir" toml:"dir" yaml:"dir"`
		// OSRelease provides VERSION_ID, the default runtime version.
		OSRelease string `json:"os_release" mapstructure:"os_release" toml:"os_release" yaml:"os_release"`
	}
)

// String returns the mode as passed on the command line.
func (m MutableMode) String() string { return string(m) }

// IsValid reports whether m is one of the supported modes.
func (m MutableMode) IsValid() (bool, []error) {
	for _, v := range validMutableModes {
		if m == v {
			return true, nil
		}
	}
	return false, []error{&InvalidMutableModeError{Value: m}}
}

// Error implements the error interface.
func (e *InvalidMutableModeError) Error() string {
	names := make([]string, len(validMutableModes))
	for i, v := range validMutableModes {
		names[i] = string(v)
	}
	return fmt.Sprintf("Invalid mutable value '%s'. Must be one of: %s", e.Value, strings.Join(names, ", "))
}

// Unwrap returns ErrInvalidMutableMode for errors.Is() compatibility.
func (e *InvalidMutableModeError) Unwrap() error { return ErrInvalidMutableMode }

// SysextMutableMode returns the effective sysext mode: the specific key,
// then the legacy key, then DefaultMutable.
func (c ExtConfig) SysextMutableMode() (MutableMode, error) {
	return effectiveMutable(c.SysextMutable, c.Mutable)
}

// ConfextMutableMode returns the effective confext mode with the same
// precedence as SysextMutableMode.
func (c ExtConfig) ConfextMutableMode() (MutableMode, error) {
	return effectiveMutable(c.ConfextMutable, c.Mutable)
}

func effectiveMutable(specific, legacy MutableMode) (MutableMode, error) {
	mode := DefaultMutable
	switch {
	case specific != "":
		mode = specific
	case legacy != "":
		mode = legacy
	}
	if valid, errs := mode.IsValid(); !valid {
		return "", errs[0]
	}
	return mode, nil
}

// IsValid validates every typed field of the configuration.
func (c *Config) IsValid() (bool, []error) {
	var errs []error
	collect := func(_ bool, e []error) { errs = append(errs, e...) }

	collect(c.Avocado.Ext.Dir.IsValid())
	collect(c.Avocado.HITL.Dir.IsValid())
	collect(c.Avocado.HITL.DropinDir.IsValid())
	collect(c.Avocado.HITL.Port.IsValid())
	collect(c.Avocado.Runtime.Dir.IsValid())
	if _, err := c.Avocado.Ext.SysextMutableMode(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Avocado.Ext.ConfextMutableMode(); err != nil {
		errs = append(errs, err)
	}
	if c.Avocado.HITL.MountRetries < 0 {
		errs = append(errs, fmt.Errorf("mount_retries must not be negative, got %d", c.Avocado.HITL.MountRetries))
	}
	return len(errs) == 0, errs
}
