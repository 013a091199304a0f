// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gpu

// Vertex is a clip-space position with its texture coordinate.
type Vertex struct {
	X, Y float32
	U, V float32
}

// Quad is a rectangle as four vertices: top-left, top-right,
// bottom-left, bottom-right.
type Quad [4]Vertex

// NewQuad converts the normalized rectangle (x, y, width, height),
// origin top-left and y down, into clip space: x' = 2x-1, y' = 1-2y,
// w' = 2w, h' = 2h. With flip the texture is sampled upside down: the
// coordinates of vertices 0 and 2, and of 1 and 3, are swapped.
func NewQuad(x, y, width, height float32, flip bool) Quad {
	clipX := 2*x - 1
	clipY := 1 - 2*y
	clipWidth := 2 * width
	clipHeight := 2 * height

	quad := Quad{
		{X: clipX, Y: clipY, U: 0, V: 0},
		{X: clipX + clipWidth, Y: clipY, U: 1, V: 0},
		{X: clipX, Y: clipY - clipHeight, U: 0, V: 1},
		{X: clipX + clipWidth, Y: clipY - clipHeight, U: 1, V: 1},
	}
	if flip {
		quad[0].U, quad[0].V, quad[2].U, quad[2].V = quad[2].U, quad[2].V, quad[0].U, quad[0].V
		quad[1].U, quad[1].V, quad[3].U, quad[3].V = quad[3].U, quad[3].V, quad[1].U, quad[1].V
	}
	return quad
}

// Flipped reports whether the quad samples its texture upside down.
func (q Quad) Flipped() bool { return q[0].V > q[2].V }

// PixelBounds returns the quad's destination rectangle in the pixels
// of a width x height target, as floating-point edges.
func (q Quad) PixelBounds(width, height int) (left, top, right, bottom float64) {
	left = (float64(q[0].X) + 1) / 2 * float64(width)
	right = (float64(q[3].X) + 1) / 2 * float64(width)
	top = (1 - float64(q[0].Y)) / 2 * float64(height)
	bottom = (1 - float64(q[3].Y)) / 2 * float64(height)
	return left, top, right, bottom
}
