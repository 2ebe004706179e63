// SPDX-License-Identifier: MPL-2.0

// Package lifecycle sequences extension merge, unmerge and refresh.
//
// A merge invokes the merge primitive, then runs the AVOCADO_ON_MERGE commands
// of every merged extension, rebuilds module dependencies at most once and
// finally loads the AVOCADO_MODPROBE modules. An unmerge runs the
// AVOCADO_ON_UNMERGE commands first and always rebuilds afterwards. A refresh
// is an unmerge without the rebuild followed by a merge, so the whole
// operation rebuilds exactly once.
package lifecycle
