// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package texture

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/webhost/lib/gpu"
)

const (
	// MaxExportIndex is the largest export index before wrapping to 1.
	MaxExportIndex = 1024

	// KeptExports is how many superseded exports stay alive.
	KeptExports = 5
)

// ExportIndex is the index counter shared by every ring of one
// instance, so the view and popup never publish the same name.
type ExportIndex struct {
	next uint64
}

// Next advances the counter through 1..MaxExportIndex.
func (x *ExportIndex) Next() uint64 {
	x.next++
	if x.next > MaxExportIndex {
		x.next = 1
	}
	return x.next
}

// ExportRing publishes successive frames of one surface under rotating
// names. Used from the frame loop only.
type ExportRing struct {
	device *gpu.Device
	prefix string
	index  *ExportIndex
	logger *slog.Logger

	current      *gpu.Export
	currentIndex uint64
	kept         []*gpu.Export
}

// NewExportRing returns a ring exporting "<prefix>.<index>".
func NewExportRing(device *gpu.Device, prefix string, index *ExportIndex, logger *slog.Logger) *ExportRing {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ExportRing{device: device, prefix: prefix, index: index, logger: logger}
}

// Update exports texture under the next index. The previous export
// joins the kept list; past KeptExports entries the oldest is closed.
func (r *ExportRing) Update(texture *gpu.Texture) error {
	if r.current != nil {
		if len(r.kept) >= KeptExports {
			r.closeExport(r.kept[0])
			r.kept = append(r.kept[:0], r.kept[1:]...)
		}
		r.kept = append(r.kept, r.current)
		r.current = nil
		r.currentIndex = 0
	}

	index := r.index.Next()
	name := fmt.Sprintf("%s.%d", r.prefix, index)
	export, err := r.device.ExportNamed(name, texture)
	if err != nil {
		return fmt.Errorf("exporting %s: %w", name, err)
	}
	r.current = export
	r.currentIndex = index
	return nil
}

// Current returns the index of the live export, or zero.
func (r *ExportRing) Current() uint64 { return r.currentIndex }

// Kept returns how many superseded exports are alive.
func (r *ExportRing) Kept() int { return len(r.kept) }

// Clean closes every superseded export and keeps the current one.
func (r *ExportRing) Clean() {
	for _, export := range r.kept {
		r.closeExport(export)
	}
	clear(r.kept)
	r.kept = r.kept[:0]
}

// Reset closes every export, including the current one.
func (r *ExportRing) Reset() {
	r.Clean()
	if r.current != nil {
		r.closeExport(r.current)
		r.current = nil
	}
	r.currentIndex = 0
}

func (r *ExportRing) closeExport(export *gpu.Export) {
	if err := export.Close(); err != nil {
		r.logger.Warn("closing export", "name", export.Name, "error", err)
	}
}
