// SPDX-License-Identifier: MPL-2.0

// Package runtime runs the external tools avocadoctl drives and the shell
// commands declared by extensions.
//
// ProcessRunner invokes tools such as systemd-sysext and depmod as blocking
// subprocesses. In test mode every tool name is resolved as "mock-<name>"
// from PATH. Shell executes AVOCADO_ON_MERGE/ON_UNMERGE command strings with
// the embedded mvdan/sh interpreter, so a value such as "cmd1; cmd2" runs as
// one program.
package runtime
