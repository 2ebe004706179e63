// SPDX-License-Identifier: MPL-2.0

// Package hitl mounts extensions served over NFS for hardware-in-the-loop
// testing.
//
// Each extension is mounted at <dir>/<extension> through a transient systemd
// mount unit. Services the extension lists in AVOCADO_ENABLE_SERVICES get a
// drop-in binding them to that mount, so they stop before it goes away.
// Extensions in a batch are independent: a failure is recorded in a
// BatchError and the remaining extensions are still processed.
package hitl
