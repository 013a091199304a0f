// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package texture

import (
	"log/slog"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/webhost/lib/gpu"
	"github.com/bureau-foundation/webhost/lib/process"
)

// FrameBuffer holds the latest paint of one engine surface.
//
// OnPaint and OnGPUPaint are called from engine goroutines. Swap,
// Texture, Reset and Close belong to the frame loop.
type FrameBuffer struct {
	device *gpu.Device
	label  string
	exit   process.Exiter
	logger *slog.Logger

	mu            sync.Mutex
	hasher        *blake3.Hasher
	staging       []byte
	width         int
	height        int
	digest        [32]byte
	hasDigest     bool
	dirty         bool
	handle        gpu.Handle
	handlePainted bool
	skipped       uint64

	texture       *gpu.Texture
	textureHandle gpu.Handle
}

// NewFrameBuffer returns an empty frame buffer. exit is called with
// process.ExitTextureImport when a GPU paint handle cannot be
// imported.
func NewFrameBuffer(device *gpu.Device, label string, exit process.Exiter, logger *slog.Logger) *FrameBuffer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FrameBuffer{
		device: device,
		label:  label,
		exit:   exit,
		logger: logger,
		hasher: blake3.New(),
	}
}

// OnPaint stages a CPU frame of width x height BGRA pixels, rows
// stride bytes apart. A frame identical to the staged one is dropped.
func (f *FrameBuffer) OnPaint(pixels []byte, width, height, stride int) {
	rowBytes := width * gpu.BytesPerPixel
	if width <= 0 || height <= 0 || stride < rowBytes || len(pixels) < stride*(height-1)+rowBytes {
		f.logger.Warn("dropping malformed paint",
			"surface", f.label,
			"width", width,
			"height", height,
			"stride", stride,
			"bytes", len(pixels),
		)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if width != f.width || height != f.height {
		f.staging = make([]byte, rowBytes*height)
		f.width, f.height = width, height
		f.hasDigest = false
	}
	for row := range height {
		copy(f.staging[row*rowBytes:(row+1)*rowBytes], pixels[row*stride:row*stride+rowBytes])
	}

	f.hasher.Reset()
	f.hasher.Write(f.staging)
	var digest [32]byte
	copy(digest[:], f.hasher.Sum(nil))
	if f.hasDigest && digest == f.digest {
		f.skipped++
		return
	}
	f.digest = digest
	f.hasDigest = true
	f.dirty = true
}

// OnGPUPaint records a frame painted into the shared texture behind
// handle.
func (f *FrameBuffer) OnGPUPaint(handle gpu.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handle = handle
	f.handlePainted = true
}

// Swap makes the latest paint current and returns the current texture
// and whether it changed since the previous Swap. It returns nil until
// the first paint.
func (f *FrameBuffer) Swap() (*gpu.Texture, bool) {
	f.mu.Lock()
	if f.handlePainted {
		handle := f.handle
		f.handlePainted = false
		f.dirty = false
		f.mu.Unlock()
		return f.swapHandle(handle)
	}
	if !f.dirty {
		f.mu.Unlock()
		return f.texture, false
	}
	f.dirty = false
	width, height := f.width, f.height
	staging := f.staging

	if f.texture == nil || f.textureHandle != 0 || f.texture.Width() != width || f.texture.Height() != height {
		f.releaseTexture()
		texture, err := f.device.CreateTexture(gpu.Descriptor2D(f.label, width, height, gpu.FormatBGRA8))
		if err != nil {
			f.mu.Unlock()
			f.logger.Error("allocating frame texture", "surface", f.label, "error", err)
			return nil, false
		}
		f.texture = texture
	}
	err := f.device.Upload(f.texture, staging, width*gpu.BytesPerPixel)
	texture := f.texture
	f.mu.Unlock()

	if err != nil {
		f.logger.Warn("uploading frame", "surface", f.label, "error", err)
		return texture, false
	}
	return texture, true
}

func (f *FrameBuffer) swapHandle(handle gpu.Handle) (*gpu.Texture, bool) {
	if handle == f.textureHandle && f.texture != nil {
		f.device.Refresh(f.texture)
		return f.texture, true
	}
	imported, err := f.device.OpenShared(handle)
	if err != nil {
		f.logger.Error("failed to import shared texture",
			"surface", f.label,
			"handle", uint64(handle),
			"error", err,
		)
		f.exit(process.ExitTextureImport)
		return nil, false
	}
	f.releaseTexture()
	f.texture = imported
	f.textureHandle = handle
	return imported, true
}

// Texture returns the current texture without swapping.
func (f *FrameBuffer) Texture() *gpu.Texture { return f.texture }

// Size returns the size of the staged CPU frame.
func (f *FrameBuffer) Size() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.width, f.height
}

// Skipped returns how many CPU paints were dropped as duplicates.
func (f *FrameBuffer) Skipped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.skipped
}

// Reset drops the current texture and any staged frame.
func (f *FrameBuffer) Reset() {
	f.mu.Lock()
	f.staging = nil
	f.width, f.height = 0, 0
	f.hasDigest = false
	f.dirty = false
	f.handle = 0
	f.handlePainted = false
	f.mu.Unlock()
	f.releaseTexture()
}

// Close releases the current texture.
func (f *FrameBuffer) Close() {
	f.Reset()
}

func (f *FrameBuffer) releaseTexture() {
	if f.texture != nil {
		if err := f.texture.Close(); err != nil {
			f.logger.Warn("releasing frame texture", "surface", f.label, "error", err)
		}
		f.texture = nil
		f.textureHandle = 0
	}
}
