// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// PixelFormat is the byte order of a 4-byte pixel.
type PixelFormat uint8

const (
	// FormatBGRA8 is the engine paint format and the default for
	// every texture the host creates.
	FormatBGRA8 PixelFormat = iota + 1
	// FormatRGBA8 is used for textures filled from decoded images.
	FormatRGBA8
)

// BytesPerPixel is the size of one pixel in both formats.
const BytesPerPixel = 4

func (f PixelFormat) String() string {
	switch f {
	case FormatBGRA8:
		return "bgra8"
	case FormatRGBA8:
		return "rgba8"
	default:
		return fmt.Sprintf("format(%d)", f)
	}
}

// Valid reports whether f is a known format.
func (f PixelFormat) Valid() bool { return f == FormatBGRA8 || f == FormatRGBA8 }

// ToGPUFormat maps f to the WebGPU texture format.
func (f PixelFormat) ToGPUFormat() gputypes.TextureFormat {
	switch f {
	case FormatRGBA8:
		return gputypes.TextureFormatRGBA8Unorm
	default:
		return gputypes.TextureFormatBGRA8Unorm
	}
}

// FormatFromGPU maps a WebGPU texture format back. Only the two 8-bit
// unorm formats are supported.
func FormatFromGPU(format gputypes.TextureFormat) (PixelFormat, error) {
	switch format {
	case gputypes.TextureFormatBGRA8Unorm:
		return FormatBGRA8, nil
	case gputypes.TextureFormatRGBA8Unorm:
		return FormatRGBA8, nil
	default:
		return 0, fmt.Errorf("gpu: unsupported texture format %v", format)
	}
}

// DefaultUsage is the usage of textures the compositor both uploads
// into and samples from or renders into.
const DefaultUsage = gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding | gputypes.TextureUsageRenderAttachment

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	Label  string
	Size   gputypes.Extent3D
	Format PixelFormat
	Usage  gputypes.TextureUsage
}

// Descriptor2D is the common descriptor: a single-layer texture of the
// given size with DefaultUsage.
func Descriptor2D(label string, width, height int, format PixelFormat) TextureDescriptor {
	return TextureDescriptor{
		Label:  label,
		Size:   gputypes.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		Format: format,
		Usage:  DefaultUsage,
	}
}
