// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"sync"

	"github.com/bureau-foundation/webhost/lib/layout"
	"github.com/bureau-foundation/webhost/lib/shm"
)

var (
	// ErrInvalidHandle is returned by OpenShared for handles that
	// resolve neither locally nor to a texture segment.
	ErrInvalidHandle = errors.New("gpu: invalid shared texture handle")

	// ErrClosed is returned for operations on a closed device or
	// texture.
	ErrClosed = errors.New("gpu: closed")
)

// DefaultHandleNamespace prefixes the segment names of shared
// textures.
const DefaultHandleNamespace = "webhost.tex"

// Config configures a Device.
type Config struct {
	// Namespace holds shared and exported texture segments.
	Namespace shm.Namespace

	// HandleNamespace prefixes shared texture segment names. Empty
	// means DefaultHandleNamespace.
	HandleNamespace string

	// Adapter is a "low;high" hint naming the DRM device number of
	// the adapter to use. Empty or unmatched means the default device.
	Adapter string

	// SysfsRoot is where adapters are enumerated. Empty means
	// DefaultSysfsRoot.
	SysfsRoot string

	Logger *slog.Logger
}

// Device creates, shares and draws textures.
type Device struct {
	config  Config
	logger  *slog.Logger
	adapter Adapter

	mu         sync.Mutex
	registry   map[Handle]*Texture
	nextHandle uint64
	handleBase uint64
	textures   int
	closed     bool
}

// NewDevice returns a software device.
func NewDevice(config Config) (*Device, error) {
	if config.HandleNamespace == "" {
		config.HandleNamespace = DefaultHandleNamespace
	}
	if config.SysfsRoot == "" {
		config.SysfsRoot = DefaultSysfsRoot
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var adapter Adapter
	if config.Adapter != "" {
		adapters, err := EnumerateAdapters(config.SysfsRoot)
		if err != nil {
			return nil, fmt.Errorf("enumerating adapters: %w", err)
		}
		var found bool
		adapter, found = SelectAdapter(adapters, config.Adapter)
		if !found {
			logger.Warn("requested adapter not found, using default",
				"hint", config.Adapter,
				"adapters", len(adapters),
			)
		}
	}

	device := &Device{
		config:     config,
		logger:     logger,
		adapter:    adapter,
		registry:   make(map[Handle]*Texture),
		handleBase: uint64(os.Getpid()) << 32,
	}
	logger.Info("gpu device ready",
		"backend", "software",
		"adapter", adapter.String(),
		"handle_namespace", config.HandleNamespace,
	)
	return device, nil
}

// Adapter returns the selected adapter. The zero Adapter is the
// default device.
func (d *Device) Adapter() Adapter { return d.adapter }

// SegmentName returns the segment name backing handle.
func (d *Device) SegmentName(handle Handle) string {
	return fmt.Sprintf("%s.%d", d.config.HandleNamespace, uint64(handle))
}

// CreateTexture allocates a zeroed texture.
func (d *Device) CreateTexture(descriptor TextureDescriptor) (*Texture, error) {
	if d.isClosed() {
		return nil, ErrClosed
	}
	width, height := int(descriptor.Size.Width), int(descriptor.Size.Height)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gpu: creating texture %q: invalid size %dx%d", descriptor.Label, width, height)
	}
	if !descriptor.Format.Valid() {
		return nil, fmt.Errorf("gpu: creating texture %q: invalid format %v", descriptor.Label, descriptor.Format)
	}
	d.mu.Lock()
	d.textures++
	d.mu.Unlock()
	return &Texture{
		device: d,
		label:  descriptor.Label,
		format: descriptor.Format,
		usage:  descriptor.Usage,
		pixels: image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

// Share assigns texture a handle and creates its backing segment. The
// segment content is written at the next Flush. Sharing an already
// shared texture returns its handle.
func (d *Device) Share(texture *Texture) (Handle, error) {
	if texture.closed {
		return 0, ErrClosed
	}
	if texture.handle != 0 {
		return texture.handle, nil
	}

	d.mu.Lock()
	d.nextHandle++
	handle := Handle(d.handleBase | d.nextHandle)
	d.mu.Unlock()

	header := headerOf(texture)
	segment, err := d.config.Namespace.Create(d.SegmentName(handle), header.SegmentSize())
	if err != nil {
		return 0, fmt.Errorf("gpu: sharing texture %q: %w", texture.label, err)
	}
	if err := layout.WriteTextureHeader(segment.Bytes(), header); err != nil {
		segment.Unlink()
		return 0, fmt.Errorf("gpu: sharing texture %q: %w", texture.label, err)
	}

	texture.handle = handle
	texture.segment = segment
	texture.dirty = true

	d.mu.Lock()
	d.registry[handle] = texture
	d.mu.Unlock()
	return handle, nil
}

// OpenShared imports the texture behind handle. Handles shared by this
// device alias the original pixels; other handles map the texture
// segment and copy its pixels in whenever the publisher bumps the
// generation (see Refresh).
func (d *Device) OpenShared(handle Handle) (*Texture, error) {
	if handle == 0 {
		return nil, ErrInvalidHandle
	}
	d.mu.Lock()
	local, ok := d.registry[handle]
	d.mu.Unlock()
	if ok {
		return &Texture{
			device:   d,
			label:    local.label,
			format:   local.format,
			usage:    local.usage,
			pixels:   local.pixels,
			borrowed: true,
		}, nil
	}

	name := d.SegmentName(handle)
	probe, err := d.config.Namespace.Open(name, layout.TextureHeaderSize, true)
	if err != nil {
		return nil, fmt.Errorf("%w %#x: %w", ErrInvalidHandle, uint64(handle), err)
	}
	probed, err := layout.DecodeTextureHeader(probe.Bytes())
	probe.Close()
	if err != nil {
		return nil, fmt.Errorf("%w %#x: %w", ErrInvalidHandle, uint64(handle), err)
	}
	segment, err := d.config.Namespace.Open(name, probed.SegmentSize(), true)
	if err != nil {
		return nil, fmt.Errorf("%w %#x: %w", ErrInvalidHandle, uint64(handle), err)
	}
	header, err := layout.ReadTextureHeader(segment.Bytes())
	if err != nil || header != probed {
		segment.Close()
		if err == nil {
			err = errors.New("header changed while mapping")
		}
		return nil, fmt.Errorf("%w %#x: %w", ErrInvalidHandle, uint64(handle), err)
	}
	format := PixelFormat(header.Format)
	if !format.Valid() {
		segment.Close()
		return nil, fmt.Errorf("%w %#x: unknown pixel format %d", ErrInvalidHandle, uint64(handle), header.Format)
	}

	d.mu.Lock()
	d.textures++
	d.mu.Unlock()
	texture := &Texture{
		device:   d,
		label:    name,
		format:   format,
		usage:    DefaultUsage,
		pixels:   image.NewRGBA(image.Rect(0, 0, int(header.Width), int(header.Height))),
		segment:  segment,
		imported: true,
	}
	d.Refresh(texture)
	return texture, nil
}

// Refresh copies a segment-backed import's pixels in when the
// publisher has flushed a new generation. Other textures are left
// alone.
func (d *Device) Refresh(texture *Texture) {
	if !texture.imported || texture.closed {
		return
	}
	data := texture.segment.Bytes()
	generation := layout.TextureGeneration(data)
	if generation == texture.generation {
		return
	}
	header, err := layout.ReadTextureHeader(data)
	if err != nil {
		d.logger.Warn("shared texture header became invalid", "texture", texture.label, "error", err)
		return
	}
	copyRows(texture.pixels.Pix, texture.pixels.Stride, layout.TexturePixels(data, header), int(header.Stride), texture.Width()*BytesPerPixel, texture.Height())
	texture.generation = generation
}

// Export is a texture published under an explicit segment name.
type Export struct {
	Name    string
	segment *shm.Segment
}

// Close unlinks the export's segment.
func (e *Export) Close() error {
	if e.segment == nil {
		return nil
	}
	err := e.segment.Unlink()
	e.segment = nil
	return err
}

// ExportNamed writes texture's current pixels into a segment named
// name, replacing any previous segment of that name, and publishes it.
func (d *Device) ExportNamed(name string, texture *Texture) (*Export, error) {
	if texture.closed {
		return nil, ErrClosed
	}
	if err := d.config.Namespace.Remove(name); err != nil {
		return nil, err
	}
	header := headerOf(texture)
	segment, err := d.config.Namespace.Create(name, header.SegmentSize())
	if err != nil {
		return nil, fmt.Errorf("gpu: exporting %s: %w", name, err)
	}
	data := segment.Bytes()
	if err := layout.WriteTextureHeader(data, header); err != nil {
		segment.Unlink()
		return nil, fmt.Errorf("gpu: exporting %s: %w", name, err)
	}
	copy(layout.TexturePixels(data, header), texture.pixels.Pix)
	layout.PublishTextureGeneration(data, 1)
	return &Export{Name: name, segment: segment}, nil
}

// Upload copies rows of width*4 bytes from pixels (stride bytes apart)
// into texture. The pixel data must be in the texture's format.
func (d *Device) Upload(texture *Texture, pixels []byte, stride int) error {
	if texture.closed {
		return ErrClosed
	}
	rowBytes := texture.Width() * BytesPerPixel
	if stride < rowBytes {
		return fmt.Errorf("gpu: upload to %q: stride %d below row size %d", texture.label, stride, rowBytes)
	}
	if need := stride*(texture.Height()-1) + rowBytes; len(pixels) < need {
		return fmt.Errorf("gpu: upload to %q: %d bytes, need %d", texture.label, len(pixels), need)
	}
	copyRows(texture.pixels.Pix, texture.pixels.Stride, pixels, stride, rowBytes, texture.Height())
	texture.dirty = true
	return nil
}

// Clear fills target with c, given as straight RGBA and stored in the
// target's channel order.
func (d *Device) Clear(target *Texture, c color.RGBA) error {
	if target.closed {
		return ErrClosed
	}
	pixel := [4]byte{c.R, c.G, c.B, c.A}
	if target.format == FormatBGRA8 {
		pixel[0], pixel[2] = c.B, c.R
	}
	pix := target.pixels.Pix
	for offset := 0; offset+4 <= len(pix); offset += 4 {
		copy(pix[offset:offset+4], pixel[:])
	}
	target.dirty = true
	return nil
}

// Flush writes every dirty shared texture into its segment and
// publishes a new generation.
func (d *Device) Flush() error {
	d.mu.Lock()
	shared := make([]*Texture, 0, len(d.registry))
	for _, texture := range d.registry {
		shared = append(shared, texture)
	}
	d.mu.Unlock()

	for _, texture := range shared {
		if !texture.dirty || texture.segment == nil {
			continue
		}
		data := texture.segment.Bytes()
		header := headerOf(texture)
		copy(layout.TexturePixels(data, header), texture.pixels.Pix)
		layout.PublishTextureGeneration(data, layout.TextureGeneration(data)+1)
		texture.dirty = false
	}
	return nil
}

// LiveTextures returns the number of textures created and not yet
// closed.
func (d *Device) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.textures
}

// Close releases every shared texture segment. Textures must not be
// used afterwards.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	shared := make([]*Texture, 0, len(d.registry))
	for _, texture := range d.registry {
		shared = append(shared, texture)
	}
	d.mu.Unlock()

	var firstErr error
	for _, texture := range shared {
		if err := texture.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *Device) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Device) release(texture *Texture) error {
	if texture.borrowed {
		return nil
	}
	d.mu.Lock()
	d.textures--
	if texture.handle != 0 {
		delete(d.registry, texture.handle)
	}
	d.mu.Unlock()

	if texture.segment == nil {
		return nil
	}
	segment := texture.segment
	texture.segment = nil
	if texture.imported {
		return segment.Close()
	}
	return segment.Unlink()
}

func headerOf(texture *Texture) layout.TextureHeader {
	return layout.TextureHeader{
		Width:  uint32(texture.Width()),
		Height: uint32(texture.Height()),
		Format: uint32(texture.format),
		Stride: uint32(texture.pixels.Stride),
	}
}

func copyRows(destination []byte, destinationStride int, source []byte, sourceStride, rowBytes, rows int) {
	for row := range rows {
		copy(destination[row*destinationStride:row*destinationStride+rowBytes], source[row*sourceStride:row*sourceStride+rowBytes])
	}
}
