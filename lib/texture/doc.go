// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package texture turns engine paints into textures the compositor can
// sample.
//
// A [FrameBuffer] receives paints for one surface (the page view or a
// popup) on engine goroutines and hands the latest frame to the frame
// loop through [FrameBuffer.Swap]. CPU paints are staged in memory and
// uploaded at swap time; a frame whose BLAKE3 digest matches the
// previous one is dropped without an upload. GPU paints arrive as
// shared texture handles and are imported through the device; a handle
// that cannot be imported ends the process with exit code 20, since
// every later frame from that engine would fail the same way.
//
// An [ExportRing] publishes frames for passthrough consumers, which
// sample the engine's output directly instead of a composited target.
// Each update exports the frame under "<prefix>.<index>" with the
// index cycling through 1..1024 and keeps the last few superseded
// exports alive, so a consumer still reading the previous index never
// sees its segment disappear mid-frame.
package texture
