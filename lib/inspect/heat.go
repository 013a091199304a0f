// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspect

import "time"

const (
	// HeatDecayDuration is how long a row glows after it changed.
	HeatDecayDuration = 5 * time.Second

	heatTickInterval = 100 * time.Millisecond
)

// HeatKind selects the glow color.
type HeatKind int

const (
	// HeatAppeared marks an instance the host just created.
	HeatAppeared HeatKind = iota
	// HeatVanished marks an instance the host just closed.
	HeatVanished
)

type heatEntry struct {
	ignition time.Time
	kind     HeatKind
}

// HeatTracker remembers when instance rows changed so they can fade
// from a highlight back to normal.
type HeatTracker struct {
	entries map[uint32]heatEntry
}

// NewHeatTracker returns an empty tracker.
func NewHeatTracker() *HeatTracker {
	return &HeatTracker{entries: make(map[uint32]heatEntry)}
}

// Ignite starts or restarts the glow of id.
func (tracker *HeatTracker) Ignite(id uint32, kind HeatKind, now time.Time) {
	tracker.entries[id] = heatEntry{ignition: now, kind: kind}
}

// Heat returns 1 at ignition falling linearly to 0 after
// HeatDecayDuration.
func (tracker *HeatTracker) Heat(id uint32, now time.Time) (float64, HeatKind) {
	entry, ok := tracker.entries[id]
	if !ok {
		return 0, HeatAppeared
	}
	elapsed := now.Sub(entry.ignition)
	if elapsed >= HeatDecayDuration {
		return 0, entry.kind
	}
	return 1 - float64(elapsed)/float64(HeatDecayDuration), entry.kind
}

// Diff ignites every id present in only one of the two id sets.
func (tracker *HeatTracker) Diff(before, after map[uint32]bool, now time.Time) {
	for id := range after {
		if !before[id] {
			tracker.Ignite(id, HeatAppeared, now)
		}
	}
	for id := range before {
		if !after[id] {
			tracker.Ignite(id, HeatVanished, now)
		}
	}
}

// HasHot reports whether anything still glows, dropping entries that
// have decayed.
func (tracker *HeatTracker) HasHot(now time.Time) bool {
	hot := false
	for id, entry := range tracker.entries {
		if now.Sub(entry.ignition) < HeatDecayDuration {
			hot = true
			continue
		}
		delete(tracker.entries, id)
	}
	return hot
}
