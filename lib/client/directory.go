// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"

	"github.com/bureau-foundation/webhost/lib/layout"
	"github.com/bureau-foundation/webhost/lib/shm"
)

// Directory is a writable directory segment.
type Directory struct {
	segment   *shm.Segment
	directory layout.Directory
}

// CreateDirectory maps the directory segment called name, creating it
// when missing. A new segment starts with an empty list.
func CreateDirectory(namespace shm.Namespace, name string) (*Directory, error) {
	segment, err := namespace.Create(name, layout.DirectorySize)
	if err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", name, err)
	}
	directory, err := layout.NewDirectory(segment.Bytes())
	if err != nil {
		segment.Close()
		return nil, err
	}
	return &Directory{segment: segment, directory: directory}, nil
}

// Name returns the segment name the host expects in ACCSPWB_KEY.
func (d *Directory) Name() string { return d.segment.Name() }

// SetIDs publishes the listed ids.
func (d *Directory) SetIDs(ids ...uint32) error {
	return d.directory.SetIDs(ids)
}

// IDs returns the listed ids. It is empty while a sentinel is set.
func (d *Directory) IDs() []uint32 {
	return d.directory.AppendIDs(nil, d.directory.Count())
}

// BeginWrite stores the writing sentinel. The host keeps every
// instance alive until SetIDs publishes a new list.
func (d *Directory) BeginWrite() {
	d.directory.SetCount(layout.WritingSentinel)
}

// Shutdown asks the host to close every instance and exit.
func (d *Directory) Shutdown() {
	d.directory.SetCount(layout.ShutdownSentinel)
}

// Terminate asks the host to exit immediately without cleanup.
func (d *Directory) Terminate() {
	d.directory.SetCount(layout.HardExitSentinel)
}

// Close unmaps the segment. With unlink the name is removed as well.
func (d *Directory) Close(unlink bool) error {
	if unlink {
		return d.segment.Unlink()
	}
	return d.segment.Close()
}
