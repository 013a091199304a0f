// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package shm maps named, fixed-size memory segments shared between the
// host process and its clients.
//
// A [Namespace] is a directory on a memory-backed filesystem (/dev/shm
// on Linux). Each segment is a file in that directory sized with
// ftruncate and mapped MAP_SHARED, so every process that maps the same
// name observes the same bytes. Tests point the namespace at a
// temporary directory; the mapping semantics are identical.
//
// There is no cross-process lock. Correctness relies on field
// ownership (each field group has exactly one writer) and on the
// publish/acquire pair in this package: a writer fills a buffer, then
// calls [Publish] to store the entry count; a reader calls [Acquire]
// before trusting the buffer and stores zero with [Publish] once the
// buffer has been consumed. Both are 32-bit atomic operations on the
// mapped word, which the Go memory model makes sequentially
// consistent, so a reader that observes the count also observes every
// byte written before it.
//
// Segment lifetime follows the creator: the side that created a
// segment unlinks it with [Segment.Unlink] once the other side has
// acknowledged it. [Segment.Close] only unmaps.
package shm
