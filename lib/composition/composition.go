// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package composition

import (
	"errors"
	"fmt"
	"math"

	"github.com/bureau-foundation/webhost/lib/gpu"
)

// Composition is an ordered set of layers over a pixel area.
type Composition struct {
	width  int
	height int
	layers []*Layer
}

// New returns an empty composition of width x height pixels.
func New(width, height int) *Composition {
	return &Composition{width: width, height: height}
}

// Size returns the composition size in pixels.
func (c *Composition) Size() (int, int) { return c.width, c.height }

// Resize changes the pixel size. Every layer rebuilds its geometry and
// external views are resized to their new pixel area.
func (c *Composition) Resize(width, height int) {
	if width == c.width && height == c.height {
		return
	}
	c.width, c.height = width, height
	for _, layer := range c.layers {
		layer.invalidate()
		layer.resizeView()
	}
}

// Add appends layer on top of the existing ones. A layer belongs to at
// most one composition.
func (c *Composition) Add(layer *Layer) {
	if layer.parent != nil {
		layer.parent.remove(layer)
	}
	layer.parent = c
	c.layers = append(c.layers, layer)
	layer.invalidate()
	layer.resizeView()
}

// Layers returns the layers in drawing order.
func (c *Composition) Layers() []*Layer { return c.layers }

// Render draws every active layer into target in insertion order and
// returns how many were drawn. A failing layer is skipped and its error
// joined into the result.
func (c *Composition) Render(device *gpu.Device, target *gpu.Texture) (int, error) {
	var errs []error
	drawn := 0
	for _, layer := range c.layers {
		if !layer.Active() {
			continue
		}
		source := textureOf(layer.source)
		if source == nil {
			continue
		}
		if err := device.Draw(target, layer.Quad(), source); err != nil {
			errs = append(errs, fmt.Errorf("drawing layer %d: %w", layer.index(), err))
			continue
		}
		drawn++
	}
	return drawn, errors.Join(errs...)
}

// Detach removes every layer. Layers keep their sources.
func (c *Composition) Detach() {
	for _, layer := range c.layers {
		layer.parent = nil
	}
	clear(c.layers)
	c.layers = c.layers[:0]
}

func (c *Composition) remove(layer *Layer) {
	for i, candidate := range c.layers {
		if candidate == layer {
			c.layers = append(c.layers[:i], c.layers[i+1:]...)
			return
		}
	}
}

// Layer is a normalized rectangle drawing one source.
type Layer struct {
	source Source
	flip   bool
	parent *Composition

	x, y, width, height float32

	quad      gpu.Quad
	quadValid bool
}

// NewLayer returns a layer covering nothing. With flip the source is
// sampled upside down, as engine surfaces are.
func NewLayer(source Source, flip bool) *Layer {
	return &Layer{source: source, flip: flip}
}

// Source returns the layer's source.
func (l *Layer) Source() Source { return l.source }

// Composition returns the composition the layer belongs to, or nil.
func (l *Layer) Composition() *Composition { return l.parent }

// Move sets the normalized rectangle.
func (l *Layer) Move(x, y, width, height float32) {
	if x == l.x && y == l.y && width == l.width && height == l.height {
		return
	}
	l.x, l.y, l.width, l.height = x, y, width, height
	l.invalidate()
	l.resizeView()
}

// MovePixels sets the rectangle in the parent composition's pixels.
// Without a parent, or with an empty parent, the layer is hidden.
func (l *Layer) MovePixels(x, y, width, height int) {
	if l.parent == nil || l.parent.width <= 0 || l.parent.height <= 0 {
		l.Move(0, 0, 0, 0)
		return
	}
	parentWidth, parentHeight := float32(l.parent.width), float32(l.parent.height)
	l.Move(float32(x)/parentWidth, float32(y)/parentHeight, float32(width)/parentWidth, float32(height)/parentHeight)
}

// Bounds returns the normalized rectangle.
func (l *Layer) Bounds() (x, y, width, height float32) {
	return l.x, l.y, l.width, l.height
}

// Active reports whether the layer covers any area.
func (l *Layer) Active() bool { return l.width > 0 }

// Quad returns the clip-space geometry, rebuilding it after a move or
// resize.
func (l *Layer) Quad() gpu.Quad {
	if !l.quadValid {
		l.quad = gpu.NewQuad(l.x, l.y, l.width, l.height, l.flip)
		l.quadValid = true
	}
	return l.quad
}

// PixelSize returns the layer's area in the parent's pixels.
func (l *Layer) PixelSize() (int, int) {
	if l.parent == nil {
		return 0, 0
	}
	return int(math.Round(float64(l.width) * float64(l.parent.width))),
		int(math.Round(float64(l.height) * float64(l.parent.height)))
}

func (l *Layer) invalidate() { l.quadValid = false }

func (l *Layer) resizeView() {
	view, ok := l.source.(ExternalView)
	if !ok || view.View == nil || l.parent == nil || !l.Active() {
		return
	}
	view.View.Resize(l.PixelSize())
}

func (l *Layer) index() int {
	if l.parent == nil {
		return -1
	}
	for i, candidate := range l.parent.layers {
		if candidate == l {
			return i
		}
	}
	return -1
}

// PopupArea returns the normalized corners (x1, y1, x2, y2) of a popup
// rectangle given in the pixels of a width x height view. An empty view
// yields zeros.
func PopupArea(x, y, popupWidth, popupHeight, width, height int) [4]float32 {
	if width <= 0 || height <= 0 {
		return [4]float32{}
	}
	w, h := float32(width), float32(height)
	return [4]float32{
		float32(x) / w,
		float32(y) / h,
		float32(x+popupWidth) / w,
		float32(y+popupHeight) / h,
	}
}
