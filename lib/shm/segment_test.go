// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shm

import (
	"errors"
	"testing"
)

func TestCreateAndReopenShareBytes(t *testing.T) {
	namespace := Namespace{Directory: t.TempDir()}

	writer, err := namespace.Create("AcTools.CSP.CEF.v0.2", 4096)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer writer.Unlink()
	if !writer.Created() {
		t.Error("Created() = false for a new segment")
	}

	reader, err := namespace.Open("AcTools.CSP.CEF.v0.2", 4096, true)
	if err != nil {
		t.Fatalf("Open existing: %v", err)
	}
	defer reader.Close()
	if reader.Created() {
		t.Error("Created() = true for an existing segment")
	}

	copy(writer.Bytes()[100:], "hello")
	Publish(writer.Bytes(), 0, 3)

	if got := Acquire(reader.Bytes(), 0); got != 3 {
		t.Errorf("Acquire = %d, want 3", got)
	}
	if got := string(reader.Bytes()[100:105]); got != "hello" {
		t.Errorf("reader sees %q, want %q", got, "hello")
	}
}

func TestOpenExistingOnlyMissing(t *testing.T) {
	namespace := Namespace{Directory: t.TempDir()}
	_, err := namespace.Open("missing", 64, true)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open missing: err = %v, want ErrNotFound", err)
	}
}

func TestOpenExistingTooSmall(t *testing.T) {
	namespace := Namespace{Directory: t.TempDir()}
	small, err := namespace.Create("small", 64)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer small.Unlink()

	_, err = namespace.Open("small", 4096, true)
	if !errors.Is(err, ErrTooSmall) {
		t.Fatalf("Open larger: err = %v, want ErrTooSmall", err)
	}
}

func TestInvalidNames(t *testing.T) {
	namespace := Namespace{Directory: t.TempDir()}
	for _, name := range []string{"", "a/b", "..", "."} {
		if _, err := namespace.Open(name, 64, false); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Open(%q): err = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	namespace := Namespace{Directory: t.TempDir()}
	segment, err := namespace.Create("twice", 64)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := segment.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := segment.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if segment.Bytes() != nil {
		t.Error("Bytes() not nil after Close")
	}

	// A zero Segment (as left by a failed Open) must also close cleanly.
	half := &Segment{fd: -1}
	if err := half.Close(); err != nil {
		t.Errorf("Close on half-initialized segment: %v", err)
	}
}

func TestUnlinkRemovesName(t *testing.T) {
	namespace := Namespace{Directory: t.TempDir()}
	segment, err := namespace.Create("gone", 64)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !namespace.Exists("gone") {
		t.Fatal("Exists = false after Create")
	}
	if err := segment.Unlink(); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if namespace.Exists("gone") {
		t.Error("Exists = true after Unlink")
	}
	if err := namespace.Remove("gone"); err != nil {
		t.Errorf("Remove of missing segment: %v", err)
	}
}

func TestPublishRejectsMisalignedOffsets(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Publish at offset 2 did not panic")
		}
	}()
	Publish(make([]byte, 16), 2, 1)
}

func TestPublish64(t *testing.T) {
	buffer := make([]byte, 32)
	Publish64(buffer, 16, 0x0102030405060708)
	if got := Acquire64(buffer, 16); got != 0x0102030405060708 {
		t.Errorf("Acquire64 = %#x", got)
	}
}

func TestCreateNewRejectsExisting(t *testing.T) {
	namespace := Namespace{Directory: t.TempDir()}
	first, err := namespace.CreateNew("overflow_1", 128)
	if err != nil {
		t.Fatalf("CreateNew: %v", err)
	}
	defer first.Unlink()
	if !first.Created() {
		t.Error("Created = false for a new segment")
	}

	if _, err := namespace.CreateNew("overflow_1", 128); !errors.Is(err, ErrExists) {
		t.Fatalf("second CreateNew: err = %v, want ErrExists", err)
	}
}
