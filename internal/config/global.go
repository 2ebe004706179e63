// SPDX-License-Identifier: MPL-2.0

package config

// defaultConfigPathOverride lets tests point the default location at a
// temporary file without passing --config.
var defaultConfigPathOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	defaultConfigPathOverride = ""
}

// SetDefaultConfigPathOverride replaces DefaultConfigPath for this process.
func SetDefaultConfigPathOverride(path string) {
	defaultConfigPathOverride = path
}

func defaultConfigPath() string {
	if defaultConfigPathOverride != "" {
		return defaultConfigPathOverride
	}
	return DefaultConfigPath
}
