// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"errors"
	"testing"
)

func TestSchemasValidate(t *testing.T) {
	for _, schema := range []Schema{EntrySchema, DirectorySchema, TextureHeaderSchema} {
		if err := schema.Validate(); err != nil {
			t.Errorf("%s.Validate: %v", schema.Name, err)
		}
	}
}

func TestEntryOffsets(t *testing.T) {
	if EntrySize != 262256 {
		t.Fatalf("EntrySize = %d, want 262256", EntrySize)
	}
	tests := []struct {
		name   string
		offset int
	}{
		{"be_alive_time", 0},
		{"zoom_level", 8},
		{"handle", 16},
		{"popup_handle", 24},
		{"popup_dimensions", 32},
		{"width", 48},
		{"height", 52},
		{"loading_progress", 56},
		{"cursor", 58},
		{"audio_peak", 59},
		{"fe_flags", 60},
		{"mouse_x", 64},
		{"mouse_wheel", 68},
		{"mouse_flags", 70},
		{"needs_next_frame", 71},
		{"be_flags", 72},
		{"touches", 80},
		{"scroll_x", 96},
		{"scroll_y", 100},
		{"commands_set", 104},
		{"response_set", 108},
		{"commands", 112},
		{"response", 131184},
	}
	for _, test := range tests {
		if got := EntrySchema.Field(test.name).Offset; got != test.offset {
			t.Errorf("offset of %s = %d, want %d", test.name, got, test.offset)
		}
	}
}

func TestSchemaValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
	}{
		{"gap", Schema{Name: "gap", Size: 8, Fields: []Field{
			{Name: "a", Offset: 0, Size: 2},
			{Name: "b", Offset: 4, Size: 4},
		}}},
		{"overlap", Schema{Name: "overlap", Size: 6, Fields: []Field{
			{Name: "a", Offset: 0, Size: 4},
			{Name: "b", Offset: 2, Size: 4},
		}}},
		{"short", Schema{Name: "short", Size: 16, Fields: []Field{
			{Name: "a", Offset: 0, Size: 8},
		}}},
		{"misaligned atomic", Schema{Name: "misaligned", Size: 8, Fields: []Field{
			{Name: "a", Offset: 0, Size: 2},
			{Name: "b", Offset: 2, Size: 4, Atomic: true},
			{Name: "c", Offset: 6, Size: 2},
		}}},
		{"duplicate", Schema{Name: "duplicate", Size: 8, Fields: []Field{
			{Name: "a", Offset: 0, Size: 4},
			{Name: "a", Offset: 4, Size: 4},
		}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := test.schema.Validate(); err == nil {
				t.Error("Validate succeeded, want error")
			}
		})
	}
}

func TestEntryAccessors(t *testing.T) {
	entry, err := NewEntry(make([]byte, EntrySize))
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}

	entry.SetSize(1280, 720)
	entry.SetMouse(MouseOutside, 12)
	entry.SetMouseWheel(-120)
	entry.SetHandle(0xDEADBEEF01)
	entry.SetPopupDimensions([4]float32{0.1, 0.2, 0.3, 0.4})
	entry.SetTouch(1, Vec2{X: 5, Y: 6})
	entry.SetTouch(0, Vec2{X: NoTouch, Y: NoTouch})
	entry.SetBackendFlags(BackendLoading | BackendMuted)
	entry.SetZoomLevel(1.5)
	entry.PublishCommands(3)

	if entry.Width() != 1280 || entry.Height() != 720 {
		t.Errorf("size = %dx%d, want 1280x720", entry.Width(), entry.Height())
	}
	if entry.MouseX() != MouseOutside || entry.MouseY() != 12 {
		t.Errorf("mouse = %d,%d, want %d,12", entry.MouseX(), entry.MouseY(), MouseOutside)
	}
	if entry.MouseWheel() != -120 {
		t.Errorf("MouseWheel = %d, want -120", entry.MouseWheel())
	}
	if entry.Handle() != 0xDEADBEEF01 {
		t.Errorf("Handle = %#x, want 0xdeadbeef01", entry.Handle())
	}
	if got := entry.PopupDimensions(); got != [4]float32{0.1, 0.2, 0.3, 0.4} {
		t.Errorf("PopupDimensions = %v", got)
	}
	touches := entry.Touches()
	if touches[0].Active() {
		t.Error("touch 0 active, want inactive")
	}
	if !touches[1].Active() || touches[1] != (Vec2{X: 5, Y: 6}) {
		t.Errorf("touch 1 = %v, want active {5 6}", touches[1])
	}
	if entry.BackendFlags() != BackendLoading|BackendMuted {
		t.Errorf("BackendFlags = %#x", entry.BackendFlags())
	}
	if entry.ZoomLevel() != 1.5 {
		t.Errorf("ZoomLevel = %v, want 1.5", entry.ZoomLevel())
	}
	if entry.CommandsSet() != 3 {
		t.Errorf("CommandsSet = %d, want 3", entry.CommandsSet())
	}
	if entry.Bytes()[104] != 3 {
		t.Errorf("commands_set byte = %d, want 3", entry.Bytes()[104])
	}
	if len(entry.Commands()) != FrameSize || len(entry.Response()) != FrameSize {
		t.Errorf("buffer sizes = %d/%d, want %d", len(entry.Commands()), len(entry.Response()), FrameSize)
	}

	entry.Response()[0] = 'x'
	if entry.Bytes()[131184] != 'x' {
		t.Error("Response does not alias the record")
	}
}

func TestNewEntryTooSmall(t *testing.T) {
	if _, err := NewEntry(make([]byte, EntrySize-1)); err == nil {
		t.Fatal("NewEntry on a short buffer succeeded")
	}
}

func TestDirectory(t *testing.T) {
	directory, err := NewDirectory(make([]byte, DirectorySize))
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	if err := directory.SetIDs([]uint32{4, 7, 9}); err != nil {
		t.Fatalf("SetIDs: %v", err)
	}
	ids := directory.AppendIDs(nil, directory.Count())
	if len(ids) != 3 || ids[0] != 4 || ids[1] != 7 || ids[2] != 9 {
		t.Errorf("ids = %v, want [4 7 9]", ids)
	}

	directory.SetCount(WritingSentinel)
	if directory.State() != DirectoryWriting {
		t.Errorf("State = %v, want writing", directory.State())
	}
	if ids := directory.AppendIDs(nil, directory.Count()); len(ids) != 0 {
		t.Errorf("ids while writing = %v, want none", ids)
	}

	if err := directory.SetIDs(make([]uint32, MaxIDs+1)); err == nil {
		t.Error("SetIDs with too many ids succeeded")
	}
}

func TestDirectoryAppendIDsUsesCallerCount(t *testing.T) {
	directory, err := NewDirectory(make([]byte, DirectorySize))
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	if err := directory.SetIDs([]uint32{5, 6}); err != nil {
		t.Fatalf("SetIDs: %v", err)
	}
	count := directory.Count()

	// A writer starting a rewrite after the count was read does not
	// empty the list read with that count.
	directory.SetCount(WritingSentinel)
	ids := directory.AppendIDs(nil, count)
	if len(ids) != 2 || ids[0] != 5 || ids[1] != 6 {
		t.Errorf("ids = %v, want [5 6]", ids)
	}
	if ids := directory.AppendIDs(nil, ShutdownSentinel); len(ids) != 0 {
		t.Errorf("ids for shutdown count = %v, want none", ids)
	}
	if ids := directory.AppendIDs(nil, MaxIDs+10); len(ids) != MaxIDs {
		t.Errorf("len(ids) for oversized count = %d, want %d", len(ids), MaxIDs)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		count int32
		want  DirectoryState
	}{
		{0, DirectoryActive},
		{255, DirectoryActive},
		{WritingSentinel, DirectoryWriting},
		{-1, DirectoryShutdown},
		{-7, DirectoryShutdown},
		{-2, DirectoryHardExit},
	}
	for _, test := range tests {
		if got := Classify(test.count); got != test.want {
			t.Errorf("Classify(%d) = %v, want %v", test.count, got, test.want)
		}
	}
}

func TestTextureHeader(t *testing.T) {
	header := TextureHeader{Width: 3, Height: 2, Format: 1, Stride: 12}
	buffer := make([]byte, header.SegmentSize())
	if err := WriteTextureHeader(buffer, header); err != nil {
		t.Fatalf("WriteTextureHeader: %v", err)
	}
	PublishTextureGeneration(buffer, 9)

	got, err := ReadTextureHeader(buffer)
	if err != nil {
		t.Fatalf("ReadTextureHeader: %v", err)
	}
	if got != header {
		t.Errorf("header = %+v, want %+v", got, header)
	}
	if TextureGeneration(buffer) != 9 {
		t.Errorf("generation = %d, want 9", TextureGeneration(buffer))
	}
	if len(TexturePixels(buffer, got)) != 24 {
		t.Errorf("pixel area = %d bytes, want 24", len(TexturePixels(buffer, got)))
	}

	// The header alone decodes; only the full read wants the pixels.
	headerOnly := buffer[:TextureHeaderSize]
	if decoded, err := DecodeTextureHeader(headerOnly); err != nil || decoded != header {
		t.Errorf("DecodeTextureHeader(header only) = %+v, %v; want %+v", decoded, err, header)
	}
	if _, err := ReadTextureHeader(headerOnly); err == nil {
		t.Error("ReadTextureHeader accepted a segment without its pixels")
	}

	buffer[0] = 0
	if _, err := ReadTextureHeader(buffer); !errors.Is(err, ErrBadTextureMagic) {
		t.Errorf("ReadTextureHeader on bad magic = %v, want ErrBadTextureMagic", err)
	}
}
