// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shm

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Publish stores value into the 32-bit word at offset with release
// semantics. Every write to buffer made before Publish is visible to a
// reader that observes value through Acquire. offset must be 4-byte
// aligned.
func Publish(buffer []byte, offset int, value uint32) {
	atomic.StoreUint32(word(buffer, offset), value)
}

// Acquire loads the 32-bit word at offset with acquire semantics.
func Acquire(buffer []byte, offset int) uint32 {
	return atomic.LoadUint32(word(buffer, offset))
}

// Publish64 and Acquire64 are the 64-bit forms, used for handle fields
// the consumer polls. offset must be 8-byte aligned.
func Publish64(buffer []byte, offset int, value uint64) {
	atomic.StoreUint64(word64(buffer, offset), value)
}

// Acquire64 loads the 64-bit word at offset with acquire semantics.
func Acquire64(buffer []byte, offset int) uint64 {
	return atomic.LoadUint64(word64(buffer, offset))
}

func word(buffer []byte, offset int) *uint32 {
	if offset < 0 || offset+4 > len(buffer) || offset%4 != 0 {
		panic(fmt.Sprintf("shm: misaligned or out-of-range 32-bit word at offset %d (buffer %d bytes)", offset, len(buffer)))
	}
	return (*uint32)(unsafe.Pointer(&buffer[offset]))
}

func word64(buffer []byte, offset int) *uint64 {
	if offset < 0 || offset+8 > len(buffer) || offset%8 != 0 {
		panic(fmt.Sprintf("shm: misaligned or out-of-range 64-bit word at offset %d (buffer %d bytes)", offset, len(buffer)))
	}
	return (*uint64)(unsafe.Pointer(&buffer[offset]))
}
