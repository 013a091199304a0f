// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package statusfile writes and reads the host status snapshot.
//
// The scheduler periodically replaces the file with a JSON [Snapshot]
// of its counters and every live instance. Writes are atomic (write
// to a temporary file, fsync, rename) so the inspector never reads a
// partial snapshot. [Check] reports snapshots older than a cutoff as
// stale, which is how the inspector tells a stopped host from a busy
// one.
package statusfile
