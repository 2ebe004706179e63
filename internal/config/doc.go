// SPDX-License-Identifier: MPL-2.0

// Package config loads avocadoctl settings from a TOML file.
//
// The file (default /etc/avocado/avocadoctl.conf) is decoded with go-toml,
// validated against the embedded CUE schema (config_schema.cue) and merged
// into Viper on top of the built-in defaults. AVOCADO_EXTENSIONS_PATH and
// AVOCADO_EXTENSION_RELEASE_DIR override the file. A missing default file
// means defaults; a missing file named with --config is an error.
package config
