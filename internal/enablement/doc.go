// SPDX-License-Identifier: MPL-2.0

// Package enablement manages which extensions are enabled for a runtime
// version. An enabled extension is a symlink <runtime-dir>/<version>/<entry>
// pointing at the extension in the extensions path.
package enablement
