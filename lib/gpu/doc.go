// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gpu is the texture device the compositor draws with.
//
// [Device] is a software implementation: a texture is an RGBA-layout
// pixel buffer, drawing is an affine resample with golang.org/x/image
// draw, and texture formats and usage flags are expressed with
// github.com/gogpu/gputypes so descriptors read the same as they would
// against a hardware backend.
//
// Sharing crosses process boundaries through named segments. [Device.Share]
// assigns a texture a [Handle] and backs it with the segment
// "<namespace>.<handle>": a 32-byte header (lib/layout texture schema)
// followed by the pixel rows. Writes stay local until [Device.Flush]
// copies dirty shared textures into their segments and bumps the
// header generation. [Device.OpenShared] resolves a handle from the
// local registry first and falls back to mapping the segment, so a
// handle produced by another process (an out-of-process engine, or a
// second host) imports the same way. [Device.ExportNamed] publishes a
// texture under an explicit name for passthrough consumers.
//
// Geometry follows the clip-space convention of a hardware
// compositor: [NewQuad] turns a normalized rectangle (origin top-left,
// y down) into four vertices in clip space (origin centre, y up), and
// [Device.Draw] maps that quad back onto the target's pixels.
//
// A Device is used from one goroutine, the frame loop. Textures carry
// no lock of their own.
package gpu
