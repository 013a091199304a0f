// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"image"

	"github.com/gogpu/gputypes"

	"github.com/bureau-foundation/webhost/lib/shm"
)

// Handle identifies a shareable texture across processes. Zero is
// never a valid handle.
type Handle uint64

// Texture is a 2D pixel buffer owned by a Device.
type Texture struct {
	device *Device
	label  string
	format PixelFormat
	usage  gputypes.TextureUsage

	// pixels holds the texture bytes in format order. The image.RGBA
	// type only supplies stride and bounds; channel meaning follows
	// format.
	pixels *image.RGBA

	// handle is non-zero once shared; segment backs it.
	handle  Handle
	segment *shm.Segment
	dirty   bool

	// borrowed textures alias another texture's pixels (local
	// imports) and must not release them.
	borrowed bool

	// imported textures mirror a segment written by someone else;
	// generation is the last generation copied in.
	imported   bool
	generation uint64

	closed bool
}

// Width returns the width in pixels.
func (t *Texture) Width() int { return t.pixels.Rect.Dx() }

// Height returns the height in pixels.
func (t *Texture) Height() int { return t.pixels.Rect.Dy() }

// Size returns width and height.
func (t *Texture) Size() (int, int) { return t.Width(), t.Height() }

// Format returns the pixel format.
func (t *Texture) Format() PixelFormat { return t.format }

// Usage returns the usage flags the texture was created with.
func (t *Texture) Usage() gputypes.TextureUsage { return t.usage }

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// Handle returns the share handle, or zero when not shared.
func (t *Texture) Handle() Handle { return t.handle }

// Stride returns the byte length of one pixel row.
func (t *Texture) Stride() int { return t.pixels.Stride }

// Pixels returns the raw pixel bytes. Writes through it are not
// tracked; use Device.Upload to change a shared texture.
func (t *Texture) Pixels() []byte { return t.pixels.Pix }

// Closed reports whether Close was called.
func (t *Texture) Closed() bool { return t.closed }

// Close releases the texture. A shared texture's handle stops
// resolving and its segment is unlinked.
func (t *Texture) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.device.release(t)
}
