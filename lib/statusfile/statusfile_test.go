// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statusfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "status.json")
	written := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snapshot := Snapshot{
		Version:   "1.2.3",
		PID:       4242,
		Directory: "AcTools.CSP.CEF.v0.Dir",
		Written:   written,
		Tick:      8192,
		Frame:     FrameStats{Frame: 16.6, Tick: 1.5, Ticks: 4096},
		FailedIDs: []uint32{9},
		Instances: []Instance{{ID: 2, Segment: "AcTools.CSP.CEF.v0.2", Width: 800, Height: 600, Title: "Home"}},
	}
	if err := Write(path, snapshot); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Tick != 8192 || got.PID != 4242 || got.Directory != snapshot.Directory {
		t.Errorf("Read = %+v", got)
	}
	if !got.Written.Equal(written) {
		t.Errorf("Written = %v, want %v", got.Written, written)
	}
	if len(got.Instances) != 1 || got.Instances[0].Title != "Home" || got.Instances[0].Width != 800 {
		t.Errorf("Instances = %+v", got.Instances)
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestWriteOverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	if err := Write(path, Snapshot{Tick: 1}); err != nil {
		t.Fatalf("Write first: %v", err)
	}
	if err := Write(path, Snapshot{Tick: 2}); err != nil {
		t.Fatalf("Write second: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Tick != 2 {
		t.Errorf("Tick = %d, want 2", got.Tick)
	}
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Read missing = %v, want os.ErrNotExist", err)
	}
}

func TestReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Error("Read accepted corrupt JSON")
	}
}

func TestCheckStaleness(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	written := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := Write(path, Snapshot{Written: written}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, fresh, err := Check(path, time.Minute, written.Add(30*time.Second)); err != nil || !fresh {
		t.Errorf("Check 30s later = %v, %v; want fresh", fresh, err)
	}
	if _, fresh, err := Check(path, time.Minute, written.Add(2*time.Minute)); err != nil || fresh {
		t.Errorf("Check 2m later = %v, %v; want stale", fresh, err)
	}
	if _, fresh, err := Check(filepath.Join(t.TempDir(), "none.json"), time.Minute, written); err != nil || fresh {
		t.Errorf("Check missing = %v, %v; want false, nil", fresh, err)
	}
}

func TestClearIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	if err := Write(path, Snapshot{}); err != nil {
		t.Fatal(err)
	}
	if err := Clear(path); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := Clear(path); err != nil {
		t.Fatalf("Clear again: %v", err)
	}
}
