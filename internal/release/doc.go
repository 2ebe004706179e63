// SPDX-License-Identifier: MPL-2.0

// Package release reads extension-release metadata and turns the AVOCADO_*
// directives of many extensions into deduplicated action lists.
//
// Parsing never fails: missing files and malformed values become Diagnostic
// warnings so one broken extension cannot block the rest of the set.
package release
