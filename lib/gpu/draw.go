// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"fmt"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Draw samples source over the area of target covered by quad,
// alpha-blending over what is already there. Both textures must share
// a pixel format; the compositor keeps everything in FormatBGRA8.
func (d *Device) Draw(target *Texture, quad Quad, source *Texture) error {
	if target.closed || source.closed {
		return ErrClosed
	}
	if target.format != source.format {
		return fmt.Errorf("gpu: drawing %v texture %q into %v target %q", source.format, source.label, target.format, target.label)
	}
	d.Refresh(source)

	sourceWidth, sourceHeight := float64(source.Width()), float64(source.Height())
	left, top, right, bottom := quad.PixelBounds(target.Width(), target.Height())
	if right <= left || bottom <= top {
		return nil
	}

	// Source texel (u*w, v*h) lands on the destination corner of the
	// vertex carrying (u, v).
	u0, v0 := float64(quad[0].U), float64(quad[0].V)
	u1, v1 := float64(quad[3].U), float64(quad[3].V)
	scaleX := (right - left) / ((u1 - u0) * sourceWidth)
	scaleY := (bottom - top) / ((v1 - v0) * sourceHeight)
	transform := f64.Aff3{
		scaleX, 0, left - u0*sourceWidth*scaleX,
		0, scaleY, top - v0*sourceHeight*scaleY,
	}

	var interpolator xdraw.Interpolator = xdraw.ApproxBiLinear
	if math.Abs(scaleX) == 1 && math.Abs(scaleY) == 1 {
		interpolator = xdraw.NearestNeighbor
	}
	interpolator.Transform(target.pixels, transform, source.pixels, source.pixels.Bounds(), xdraw.Over, nil)
	target.dirty = true
	return nil
}

// Copy replaces target's pixels with source's, scaling when the sizes
// differ. Used to stage CPU frames for export.
func (d *Device) Copy(target, source *Texture) error {
	if target.closed || source.closed {
		return ErrClosed
	}
	d.Refresh(source)
	if target.Width() == source.Width() && target.Height() == source.Height() {
		copy(target.pixels.Pix, source.pixels.Pix)
	} else {
		xdraw.ApproxBiLinear.Scale(target.pixels, target.pixels.Bounds(), source.pixels, source.pixels.Bounds(), xdraw.Src, nil)
	}
	target.dirty = true
	return nil
}
