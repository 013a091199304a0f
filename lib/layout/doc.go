// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package layout defines the byte-level wire layout of every shared
// segment: the per-instance record, the instance directory, and the
// header of shared texture segments.
//
// Layouts are explicit schema tables ([Schema]) rather than Go struct
// overlays. Each [Field] names its offset, size and owning side; a
// schema is validated once (no overlaps, no gaps, aligned counters,
// exact total size) before any segment is interpreted through it. All
// multi-byte values are little endian.
//
// Ownership is the synchronization model. Host-owned fields are only
// written by the host, client-owned fields only by the client, and the
// two publish counters (commands_set, response_set) hand whole buffers
// back and forth. Counters and handles go through shm.Publish and
// shm.Acquire; plain fields use ordinary loads and stores.
package layout
