// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"encoding/binary"
	"fmt"

	"github.com/bureau-foundation/webhost/lib/shm"
)

const (
	// MaxIDs is the capacity of the directory id list.
	MaxIDs = 255

	// DirectorySize is the size of the directory segment.
	DirectorySize = 4 + 4*MaxIDs

	// WritingSentinel is the count value the client stores while it
	// rewrites the id list. The host skips the scan for that tick.
	WritingSentinel int32 = 1 << 25

	// HardExitSentinel is the count value that terminates the host
	// immediately without cleanup.
	HardExitSentinel int32 = -2

	// ShutdownSentinel is the count value the client SDK uses for an
	// orderly shutdown. Any negative count other than HardExitSentinel
	// has the same effect.
	ShutdownSentinel int32 = -1
)

const (
	offsetDirectoryCount = 0
	offsetDirectoryIDs   = 4
)

// DirectorySchema is the directory segment layout.
var DirectorySchema = Schema{
	Name: "directory",
	Size: DirectorySize,
	Fields: []Field{
		{Name: "count", Offset: offsetDirectoryCount, Size: 4, Owner: OwnerClient, Atomic: true},
		{Name: "ids", Offset: offsetDirectoryIDs, Size: 4 * MaxIDs, Owner: OwnerClient},
	},
}

// DirectoryState classifies a directory count value.
type DirectoryState uint8

const (
	// DirectoryActive means the id list holds Count valid ids.
	DirectoryActive DirectoryState = iota
	// DirectoryWriting means the client is rewriting the list.
	DirectoryWriting
	// DirectoryShutdown requests an orderly shutdown.
	DirectoryShutdown
	// DirectoryHardExit requests immediate termination.
	DirectoryHardExit
)

func (s DirectoryState) String() string {
	switch s {
	case DirectoryActive:
		return "active"
	case DirectoryWriting:
		return "writing"
	case DirectoryShutdown:
		return "shutdown"
	case DirectoryHardExit:
		return "hard-exit"
	default:
		return fmt.Sprintf("state(%d)", s)
	}
}

// Classify maps a raw count to its state.
func Classify(count int32) DirectoryState {
	switch {
	case count == HardExitSentinel:
		return DirectoryHardExit
	case count < 0:
		return DirectoryShutdown
	case count == WritingSentinel:
		return DirectoryWriting
	default:
		return DirectoryActive
	}
}

// Directory is the directory segment viewed through DirectorySchema.
type Directory struct {
	buffer []byte
}

// NewDirectory validates buffer against DirectorySchema and wraps it.
func NewDirectory(buffer []byte) (Directory, error) {
	if err := DirectorySchema.Check(buffer); err != nil {
		return Directory{}, err
	}
	return Directory{buffer: buffer[:DirectorySize]}, nil
}

// Count acquires the raw count word.
func (d Directory) Count() int32 {
	return int32(shm.Acquire(d.buffer, offsetDirectoryCount))
}

// SetCount publishes a raw count word. Sentinels are stored this way.
func (d Directory) SetCount(count int32) {
	shm.Publish(d.buffer, offsetDirectoryCount, uint32(count))
}

// State classifies the current count.
func (d Directory) State() DirectoryState { return Classify(d.Count()) }

// AppendIDs appends the first count listed ids to dst. count is a
// value the caller read with Count, so the list matches the state it
// classified even if the writer has moved on since. Counts above
// MaxIDs are clamped; dst is returned unchanged unless count is
// active.
func (d Directory) AppendIDs(dst []uint32, count int32) []uint32 {
	if Classify(count) != DirectoryActive {
		return dst
	}
	if count > MaxIDs {
		count = MaxIDs
	}
	for index := range int(count) {
		dst = append(dst, binary.LittleEndian.Uint32(d.buffer[offsetDirectoryIDs+4*index:]))
	}
	return dst
}

// SetIDs writes ids under the writing sentinel and then publishes the
// new count, so a concurrent reader either skips the tick or sees a
// complete list.
func (d Directory) SetIDs(ids []uint32) error {
	if len(ids) > MaxIDs {
		return fmt.Errorf("directory holds at most %d ids, got %d", MaxIDs, len(ids))
	}
	d.SetCount(WritingSentinel)
	for index, id := range ids {
		binary.LittleEndian.PutUint32(d.buffer[offsetDirectoryIDs+4*index:], id)
	}
	d.SetCount(int32(len(ids)))
	return nil
}
