// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/bureau-foundation/webhost/lib/shm"
	"github.com/bureau-foundation/webhost/lib/strview"
)

const (
	// DescriptorSize is the payload size of a plain overflow
	// descriptor: key (i32) and segment size (u32).
	DescriptorSize = 8

	// CompressedDescriptorSize adds the compression tag (u8) and the
	// decompressed payload size (u32).
	CompressedDescriptorSize = 13

	// MaxRawSize bounds the decompressed size a descriptor may claim.
	// Larger payloads are stored uncompressed.
	MaxRawSize = 64 << 20

	// descriptorRoom is the main-buffer space an overflow entry must
	// find free before its segment is created.
	descriptorRoom = 20
)

// Descriptor locates an overflow segment.
type Descriptor struct {
	// Key names the segment together with the instance name.
	Key int32

	// Size is the segment size: code byte, stored payload and NUL.
	Size uint32

	Compression Compression

	// RawSize is the payload size after decompression. Only
	// meaningful when Compression is not CompressionNone.
	RawSize uint32
}

// StoredSize returns the payload bytes stored in the segment.
func (d Descriptor) StoredSize() int { return int(d.Size) - 2 }

// Encode returns the descriptor payload: the short form when the
// payload is stored uncompressed, the extended form otherwise.
func (d Descriptor) Encode() []byte {
	size := DescriptorSize
	if d.Compression != CompressionNone {
		size = CompressedDescriptorSize
	}
	payload := make([]byte, size)
	binary.LittleEndian.PutUint32(payload[0:], uint32(d.Key))
	binary.LittleEndian.PutUint32(payload[4:], d.Size)
	if d.Compression != CompressionNone {
		payload[8] = byte(d.Compression)
		binary.LittleEndian.PutUint32(payload[9:], d.RawSize)
	}
	return payload
}

// ParseDescriptor decodes a descriptor payload.
func ParseDescriptor(payload []byte) (Descriptor, error) {
	switch len(payload) {
	case DescriptorSize, CompressedDescriptorSize:
	default:
		return Descriptor{}, fmt.Errorf("overflow descriptor is %d bytes, want %d or %d", len(payload), DescriptorSize, CompressedDescriptorSize)
	}
	descriptor := Descriptor{
		Key:  int32(binary.LittleEndian.Uint32(payload[0:])),
		Size: binary.LittleEndian.Uint32(payload[4:]),
	}
	if len(payload) == CompressedDescriptorSize {
		descriptor.Compression = Compression(payload[8])
		descriptor.RawSize = binary.LittleEndian.Uint32(payload[9:])
	}
	if descriptor.Size < 2 {
		return Descriptor{}, fmt.Errorf("overflow descriptor size %d below minimum 2", descriptor.Size)
	}
	if descriptor.RawSize > MaxRawSize {
		return Descriptor{}, fmt.Errorf("overflow descriptor raw size %d above maximum %d", descriptor.RawSize, MaxRawSize)
	}
	return descriptor, nil
}

// OverflowName returns the segment name for key under an instance.
func OverflowName(instance string, key int32) string {
	return fmt.Sprintf("%s_%d", instance, key)
}

// RandomKey returns a random non-negative overflow key.
func RandomKey() int32 {
	return rand.Int32N(math.MaxInt32)
}

// writeOverflow stores code and payload in a fresh segment and returns
// it with its descriptor. The key source is retried when a name is
// already taken.
func writeOverflow(namespace shm.Namespace, instance string, code Code, payload []byte, compression Compression, keys func() int32) (*shm.Segment, Descriptor, error) {
	stored := payload
	descriptor := Descriptor{}
	if compression != CompressionNone && len(payload) <= MaxRawSize {
		compressed, err := compress(payload, compression)
		switch {
		case err == nil:
			stored = compressed
			descriptor.Compression = compression
			descriptor.RawSize = uint32(len(payload))
		case !errors.Is(err, errIncompressible):
			return nil, Descriptor{}, err
		}
	}
	descriptor.Size = uint32(len(stored) + 2)

	const attempts = 8
	for range attempts {
		descriptor.Key = keys()
		segment, err := namespace.CreateNew(OverflowName(instance, descriptor.Key), int(descriptor.Size))
		if errors.Is(err, shm.ErrExists) {
			continue
		}
		if err != nil {
			return nil, Descriptor{}, fmt.Errorf("creating overflow segment: %w", err)
		}
		data := segment.Bytes()
		data[0] = byte(code)
		copy(data[1:], stored)
		data[len(data)-1] = 0
		return segment, descriptor, nil
	}
	return nil, Descriptor{}, fmt.Errorf("creating overflow segment: no free key after %d attempts", attempts)
}

// readOverflow maps the segment named by descriptor and calls visit
// with the inner record. The payload is only valid during visit.
func readOverflow(namespace shm.Namespace, instance string, descriptor Descriptor, visit func(Record)) error {
	name := OverflowName(instance, descriptor.Key)
	segment, err := namespace.Open(name, int(descriptor.Size), true)
	if err != nil {
		return fmt.Errorf("opening overflow segment: %w", err)
	}
	defer segment.Close()

	data := segment.Bytes()
	code := Code(data[0])
	payload := data[1 : descriptor.Size-1]
	if descriptor.Compression != CompressionNone {
		payload, err = decompress(payload, descriptor.Compression, int(descriptor.RawSize))
		if err != nil {
			return fmt.Errorf("overflow segment %s: %w", name, err)
		}
	}
	visit(Record{Code: code, Payload: strview.View(payload)})
	return nil
}
