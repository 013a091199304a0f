// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statusfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the host state at one point in time.
type Snapshot struct {
	// Version is the host build version.
	Version string `json:"version"`

	PID int `json:"pid"`

	// Directory is the directory segment name.
	Directory string `json:"directory"`

	Started time.Time `json:"started"`
	Written time.Time `json:"written"`

	// Tick is the scheduler tick counter.
	Tick uint64 `json:"tick"`

	// Frame holds averages over the ticks since the previous snapshot.
	Frame FrameStats `json:"frame"`

	// FailedIDs are instance ids that could not be opened.
	FailedIDs []uint32 `json:"failed_ids,omitempty"`

	Instances []Instance `json:"instances"`
}

// FrameStats are per-tick averages in milliseconds.
type FrameStats struct {
	Frame  float64 `json:"frame_ms"`
	Tick   float64 `json:"tick_ms"`
	Engine float64 `json:"engine_ms"`
	Sleep  float64 `json:"sleep_ms"`
	Ticks  uint64  `json:"ticks"`
}

// Instance summarizes one live instance.
type Instance struct {
	ID             uint32 `json:"id"`
	UUID           int64  `json:"uuid,omitempty"`
	Segment        string `json:"segment"`
	Limited        bool   `json:"limited"`
	Passthrough    bool   `json:"passthrough"`
	Width          uint32 `json:"width"`
	Height         uint32 `json:"height"`
	URL            string `json:"url,omitempty"`
	Title          string `json:"title,omitempty"`
	Loading        bool   `json:"loading"`
	Hidden         bool   `json:"hidden"`
	Suspended      bool   `json:"suspended"`
	PendingEvents  int    `json:"pending_events"`
	PendingReplies int    `json:"pending_replies"`
	Crashes        int    `json:"crashes"`
}

// Write atomically replaces the snapshot at path. The parent directory
// is created when missing. The file is created with mode 0600.
func Write(path string, snapshot Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling status snapshot: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating status directory: %w", err)
	}
	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary status file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary status file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary status file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary status file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming status file into place: %w", err)
	}
	return nil
}

// Read parses the snapshot at path. When the file does not exist the
// error wraps os.ErrNotExist.
func Read(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("parsing status file %s: %w", path, err)
	}
	return snapshot, nil
}

// Check reads the snapshot and reports whether it was written within
// maxAge of now. A missing file is not an error: it returns a zero
// Snapshot and false.
func Check(path string, maxAge time.Duration, now time.Time) (Snapshot, bool, error) {
	snapshot, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	return snapshot, now.Sub(snapshot.Written) <= maxAge, nil
}

// Clear removes the snapshot. Idempotent.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing status file: %w", err)
	}
	return nil
}
