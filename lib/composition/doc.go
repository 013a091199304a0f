// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package composition merges independently painted surfaces into one
// frame.
//
// A [Composition] is an ordered list of [Layer] values sized in
// pixels. Each layer covers a rectangle given in normalized
// coordinates (0..1, origin top-left) and draws one [Source]: a fixed
// texture, a popup frame buffer, or the frame buffer of an engine view
// whose size follows the layer. Layers render in insertion order;
// layers with zero width are skipped.
//
// Compositions are owned by the frame loop and are not safe for
// concurrent use.
package composition
