// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package composition

import (
	"github.com/bureau-foundation/webhost/lib/gpu"
	"github.com/bureau-foundation/webhost/lib/texture"
)

// Source is what a layer draws. The set of sources is closed:
// [StaticTexture], [PopupOverlay] and [ExternalView].
type Source interface {
	source()
}

// StaticTexture draws a texture owned by the caller.
type StaticTexture struct {
	Texture *gpu.Texture
}

// PopupOverlay draws the latest popup paint.
type PopupOverlay struct {
	Buffer *texture.FrameBuffer
}

// ExternalView draws the latest view paint and keeps the engine view
// sized to the layer's pixel area.
type ExternalView struct {
	Buffer *texture.FrameBuffer
	View   Resizer
}

// Resizer is the part of an engine view a layer drives.
type Resizer interface {
	Resize(width, height int)
}

func (StaticTexture) source() {}
func (PopupOverlay) source()  {}
func (ExternalView) source()  {}

// textureOf returns the texture to draw this frame, or nil.
func textureOf(source Source) *gpu.Texture {
	switch s := source.(type) {
	case StaticTexture:
		return s.Texture
	case PopupOverlay:
		current, _ := s.Buffer.Swap()
		return current
	case ExternalView:
		current, _ := s.Buffer.Swap()
		return current
	default:
		return nil
	}
}
