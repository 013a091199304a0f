// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package scheduler runs the host frame loop.
//
// Each tick reads the directory segment, heartbeats the instances it
// lists, opens the ones it has not seen (ids that failed once are
// remembered and never retried), tears down every instance the
// directory no longer lists, and then updates and renders the live
// ones. The device is flushed when anything rendered and every 512
// ticks regardless.
//
// [Scheduler.Run] paces ticks either from a periodic ticker or by
// sleeping adaptively against the expected frame schedule, and stops
// when the directory count goes negative or the context ends. The
// hard-exit sentinel terminates the process without cleanup.
//
// The [Registry] maps ids to live instances. It is owned by one
// Scheduler and is how a devtools instance finds the segment of the
// instance it inspects.
package scheduler
