// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bureau-foundation/webhost/lib/shm"
)

const (
	// TextureMagic identifies a shared texture segment ("WHTX").
	TextureMagic uint32 = 0x58544857

	// TextureHeaderSize is the size of the header that precedes the
	// pixel rows of a shared texture segment.
	TextureHeaderSize = 32
)

const (
	offsetTextureMagic      = 0
	offsetTextureWidth      = 4
	offsetTextureHeight     = 8
	offsetTextureFormat     = 12
	offsetTextureStride     = 16
	offsetTexturePad        = 20
	offsetTextureGeneration = 24
)

// TextureHeaderSchema is the layout of a shared texture segment
// header. Pixels follow at TextureHeaderSize, Stride bytes per row.
var TextureHeaderSchema = Schema{
	Name: "texture",
	Size: TextureHeaderSize,
	Fields: []Field{
		{Name: "magic", Offset: offsetTextureMagic, Size: 4, Owner: OwnerHost},
		{Name: "width", Offset: offsetTextureWidth, Size: 4, Owner: OwnerHost},
		{Name: "height", Offset: offsetTextureHeight, Size: 4, Owner: OwnerHost},
		{Name: "format", Offset: offsetTextureFormat, Size: 4, Owner: OwnerHost},
		{Name: "stride", Offset: offsetTextureStride, Size: 4, Owner: OwnerHost},
		{Name: "_pad", Offset: offsetTexturePad, Size: 4, Owner: OwnerPadding},
		{Name: "generation", Offset: offsetTextureGeneration, Size: 8, Owner: OwnerHost, Atomic: true},
	},
}

// ErrBadTextureMagic is returned when a segment does not start with
// TextureMagic.
var ErrBadTextureMagic = errors.New("layout: not a shared texture segment")

// TextureHeader is the decoded form of a texture segment header.
type TextureHeader struct {
	Width  uint32
	Height uint32
	Format uint32
	Stride uint32
}

// PixelBytes returns the size of the pixel area described by h.
func (h TextureHeader) PixelBytes() int { return int(h.Stride) * int(h.Height) }

// SegmentSize returns the segment size needed for h.
func (h TextureHeader) SegmentSize() int { return TextureHeaderSize + h.PixelBytes() }

// WriteTextureHeader stores h at the start of buffer. The generation
// word is left untouched.
func WriteTextureHeader(buffer []byte, h TextureHeader) error {
	if len(buffer) < h.SegmentSize() {
		return fmt.Errorf("texture segment is %d bytes, %dx%d stride %d needs %d", len(buffer), h.Width, h.Height, h.Stride, h.SegmentSize())
	}
	binary.LittleEndian.PutUint32(buffer[offsetTextureMagic:], TextureMagic)
	binary.LittleEndian.PutUint32(buffer[offsetTextureWidth:], h.Width)
	binary.LittleEndian.PutUint32(buffer[offsetTextureHeight:], h.Height)
	binary.LittleEndian.PutUint32(buffer[offsetTextureFormat:], h.Format)
	binary.LittleEndian.PutUint32(buffer[offsetTextureStride:], h.Stride)
	return nil
}

// DecodeTextureHeader decodes the header at the start of buffer
// without checking that buffer holds the pixels it describes. A
// reader maps the header alone first to learn the segment size.
func DecodeTextureHeader(buffer []byte) (TextureHeader, error) {
	if len(buffer) < TextureHeaderSize {
		return TextureHeader{}, fmt.Errorf("texture segment is %d bytes: %w", len(buffer), ErrBadTextureMagic)
	}
	if binary.LittleEndian.Uint32(buffer[offsetTextureMagic:]) != TextureMagic {
		return TextureHeader{}, ErrBadTextureMagic
	}
	h := TextureHeader{
		Width:  binary.LittleEndian.Uint32(buffer[offsetTextureWidth:]),
		Height: binary.LittleEndian.Uint32(buffer[offsetTextureHeight:]),
		Format: binary.LittleEndian.Uint32(buffer[offsetTextureFormat:]),
		Stride: binary.LittleEndian.Uint32(buffer[offsetTextureStride:]),
	}
	if h.Stride < 4*h.Width {
		return TextureHeader{}, fmt.Errorf("texture stride %d below row size %d", h.Stride, 4*h.Width)
	}
	return h, nil
}

// ReadTextureHeader decodes the header at the start of buffer and
// checks that buffer covers the pixel area.
func ReadTextureHeader(buffer []byte) (TextureHeader, error) {
	h, err := DecodeTextureHeader(buffer)
	if err != nil {
		return TextureHeader{}, err
	}
	if len(buffer) < h.SegmentSize() {
		return TextureHeader{}, fmt.Errorf("texture segment is %d bytes, header describes %d", len(buffer), h.SegmentSize())
	}
	return h, nil
}

// TexturePixels returns the pixel area of a texture segment.
func TexturePixels(buffer []byte, h TextureHeader) []byte {
	return buffer[TextureHeaderSize:h.SegmentSize()]
}

// TextureGeneration acquires the publish generation of a texture
// segment. Readers copy pixels only after observing a new generation.
func TextureGeneration(buffer []byte) uint64 {
	return shm.Acquire64(buffer, offsetTextureGeneration)
}

// PublishTextureGeneration stores a new generation after the pixels
// have been written.
func PublishTextureGeneration(buffer []byte, generation uint64) {
	shm.Publish64(buffer, offsetTextureGeneration, generation)
}
