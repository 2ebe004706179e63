// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for avocadoctl.
//
// The root command wires configuration, logging and the extension services
// through App. Lifecycle commands (merge, unmerge, refresh) are available at
// the top level and under the legacy "ext" group.
package cmd
