// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers that fail the test on setup errors:
// environment management (MustSetenv, MustUnsetenv) and filesystem fixtures
// for extension trees (MustMkdirAll, MustWriteFile, MustSymlink).
package testutil
