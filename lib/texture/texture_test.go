// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package texture

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/bureau-foundation/webhost/lib/gpu"
	"github.com/bureau-foundation/webhost/lib/process"
	"github.com/bureau-foundation/webhost/lib/shm"
	"github.com/bureau-foundation/webhost/lib/testutil"
)

func newDevice(t *testing.T, namespace shm.Namespace) *gpu.Device {
	t.Helper()
	device, err := gpu.NewDevice(gpu.Config{Namespace: namespace})
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	t.Cleanup(func() { device.Close() })
	return device
}

type exitRecorder struct {
	codes []process.ExitCode
}

func (r *exitRecorder) exit(code process.ExitCode) { r.codes = append(r.codes, code) }

func TestFrameBufferCPUPaint(t *testing.T) {
	device := newDevice(t, testutil.Namespace(t))
	recorder := &exitRecorder{}
	buffer := NewFrameBuffer(device, "view", recorder.exit, nil)

	if texture, changed := buffer.Swap(); texture != nil || changed {
		t.Fatalf("Swap before paint = %v, %v; want nil, false", texture, changed)
	}

	// 2x1 frame with 4 bytes of row padding.
	frame := []byte{1, 2, 3, 4, 5, 6, 7, 8, 0, 0, 0, 0}
	buffer.OnPaint(frame, 2, 1, 12)
	texture, changed := buffer.Swap()
	if texture == nil || !changed {
		t.Fatalf("Swap after paint = %v, %v", texture, changed)
	}
	if !bytes.Equal(texture.Pixels(), frame[:8]) {
		t.Errorf("texture pixels = %v, want %v", texture.Pixels(), frame[:8])
	}

	buffer.OnPaint(frame, 2, 1, 12)
	if _, changed := buffer.Swap(); changed {
		t.Error("identical frame was uploaded again")
	}
	if buffer.Skipped() != 1 {
		t.Errorf("Skipped = %d, want 1", buffer.Skipped())
	}

	buffer.OnPaint(make([]byte, 4*3*2), 3, 2, 12)
	resized, changed := buffer.Swap()
	if !changed || resized.Width() != 3 || resized.Height() != 2 {
		t.Errorf("resized texture = %dx%d changed=%v, want 3x2 true", resized.Width(), resized.Height(), changed)
	}
	if len(recorder.codes) != 0 {
		t.Errorf("unexpected exits %v", recorder.codes)
	}
}

func TestFrameBufferMalformedPaintIgnored(t *testing.T) {
	device := newDevice(t, testutil.Namespace(t))
	buffer := NewFrameBuffer(device, "view", (&exitRecorder{}).exit, nil)
	buffer.OnPaint(make([]byte, 4), 2, 2, 8)
	if texture, _ := buffer.Swap(); texture != nil {
		t.Error("malformed paint produced a texture")
	}
}

func TestFrameBufferGPUPaint(t *testing.T) {
	namespace := testutil.Namespace(t)
	producer := newDevice(t, namespace)
	consumer := newDevice(t, namespace)

	painted, _ := producer.CreateTexture(gpu.Descriptor2D("engine", 1, 1, gpu.FormatBGRA8))
	producer.Upload(painted, []byte{9, 8, 7, 255}, 4)
	handle, err := producer.Share(painted)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	producer.Flush()

	recorder := &exitRecorder{}
	buffer := NewFrameBuffer(consumer, "view", recorder.exit, nil)
	buffer.OnGPUPaint(handle)
	texture, changed := buffer.Swap()
	if texture == nil || !changed {
		t.Fatalf("Swap = %v, %v", texture, changed)
	}
	if !bytes.Equal(texture.Pixels(), []byte{9, 8, 7, 255}) {
		t.Errorf("imported pixels = %v", texture.Pixels())
	}
	if len(recorder.codes) != 0 {
		t.Errorf("importing a foreign handle exited with %v", recorder.codes)
	}

	buffer.OnGPUPaint(handle)
	again, changed := buffer.Swap()
	if again != texture || !changed {
		t.Error("repainting the same handle reimported it")
	}
}

func TestFrameBufferImportFailureExits(t *testing.T) {
	device := newDevice(t, testutil.Namespace(t))
	recorder := &exitRecorder{}
	buffer := NewFrameBuffer(device, "view", recorder.exit, nil)
	buffer.OnGPUPaint(0xBAD)
	if texture, _ := buffer.Swap(); texture != nil {
		t.Error("failed import returned a texture")
	}
	if len(recorder.codes) != 1 || recorder.codes[0] != process.ExitTextureImport {
		t.Errorf("exit codes = %v, want [%v]", recorder.codes, process.ExitTextureImport)
	}
}

func TestExportIndexWraps(t *testing.T) {
	var index ExportIndex
	for range MaxExportIndex - 1 {
		index.Next()
	}
	if got := index.Next(); got != MaxExportIndex {
		t.Fatalf("index = %d, want %d", got, MaxExportIndex)
	}
	if got := index.Next(); got != 1 {
		t.Errorf("index after wrap = %d, want 1", got)
	}
}

func TestExportRingKeepsFive(t *testing.T) {
	namespace := testutil.Namespace(t)
	device := newDevice(t, namespace)
	frame, _ := device.CreateTexture(gpu.Descriptor2D("frame", 1, 1, gpu.FormatBGRA8))

	var index ExportIndex
	ring := NewExportRing(device, "inst.T", &index, nil)
	for range 8 {
		if err := ring.Update(frame); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	if ring.Current() != 8 {
		t.Errorf("Current = %d, want 8", ring.Current())
	}
	if ring.Kept() != KeptExports {
		t.Errorf("Kept = %d, want %d", ring.Kept(), KeptExports)
	}
	names := testutil.SegmentNames(t, namespace)
	// Indices 3..8 alive: five kept plus the current one.
	want := []string{}
	for i := 3; i <= 8; i++ {
		want = append(want, fmt.Sprintf("inst.T.%d", i))
	}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("segments = %v, want %v", names, want)
	}

	ring.Clean()
	if names := testutil.SegmentNames(t, namespace); len(names) != 1 || names[0] != "inst.T.8" {
		t.Errorf("segments after Clean = %v, want [inst.T.8]", names)
	}
	ring.Reset()
	if ring.Current() != 0 {
		t.Errorf("Current after Reset = %d, want 0", ring.Current())
	}
	if names := testutil.SegmentNames(t, namespace); len(names) != 0 {
		t.Errorf("segments after Reset = %v, want none", names)
	}
}

func TestExportRingsShareIndex(t *testing.T) {
	device := newDevice(t, testutil.Namespace(t))
	frame, _ := device.CreateTexture(gpu.Descriptor2D("frame", 1, 1, gpu.FormatBGRA8))
	var index ExportIndex
	view := NewExportRing(device, "inst.T", &index, nil)
	popup := NewExportRing(device, "inst.T", &index, nil)
	view.Update(frame)
	popup.Update(frame)
	if view.Current() == popup.Current() {
		t.Errorf("view and popup share export index %d", view.Current())
	}
	view.Reset()
	popup.Reset()
}
