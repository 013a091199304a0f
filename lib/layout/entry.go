// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"encoding/binary"
	"math"

	"github.com/bureau-foundation/webhost/lib/shm"
)

const (
	// FrameSize is the capacity of each of the two command buffers.
	FrameSize = 128 * 1024

	// MaxCommandSize is the largest payload sent inline. Larger
	// payloads take the overflow path.
	MaxCommandSize = 16 * 1024

	// HeaderSize is the size of the record before the command buffers.
	HeaderSize = 112

	// EntrySize is the total size of an instance record.
	EntrySize = HeaderSize + 2*FrameSize
)

// Byte offsets of the instance record fields.
const (
	offsetAliveTime       = 0
	offsetZoomLevel       = 8
	offsetPad0            = 12
	offsetHandle          = 16
	offsetPopupHandle     = 24
	offsetPopupDimensions = 32
	offsetWidth           = 48
	offsetHeight          = 52
	offsetLoadingProgress = 56
	offsetCursor          = 58
	offsetAudioPeak       = 59
	offsetFrontendFlags   = 60
	offsetMouseX          = 64
	offsetMouseY          = 66
	offsetMouseWheel      = 68
	offsetMouseFlags      = 70
	offsetNeedsNextFrame  = 71
	offsetBackendFlags    = 72
	offsetPad1            = 76
	offsetTouches         = 80
	offsetScrollX         = 96
	offsetScrollY         = 100
	offsetCommandsSet     = 104
	offsetResponseSet     = 108
	offsetCommands        = 112
	offsetResponse        = offsetCommands + FrameSize
)

// EntrySchema is the instance record layout.
var EntrySchema = Schema{
	Name: "instance",
	Size: EntrySize,
	Fields: []Field{
		{Name: "be_alive_time", Offset: offsetAliveTime, Size: 8, Owner: OwnerHost},
		{Name: "zoom_level", Offset: offsetZoomLevel, Size: 4, Owner: OwnerHost},
		{Name: "_pad0", Offset: offsetPad0, Size: 4, Owner: OwnerPadding},
		{Name: "handle", Offset: offsetHandle, Size: 8, Owner: OwnerHost, Atomic: true},
		{Name: "popup_handle", Offset: offsetPopupHandle, Size: 8, Owner: OwnerHost, Atomic: true},
		{Name: "popup_dimensions", Offset: offsetPopupDimensions, Size: 16, Owner: OwnerHost},
		{Name: "width", Offset: offsetWidth, Size: 4, Owner: OwnerClient},
		{Name: "height", Offset: offsetHeight, Size: 4, Owner: OwnerClient},
		{Name: "loading_progress", Offset: offsetLoadingProgress, Size: 2, Owner: OwnerHost},
		{Name: "cursor", Offset: offsetCursor, Size: 1, Owner: OwnerHost},
		{Name: "audio_peak", Offset: offsetAudioPeak, Size: 1, Owner: OwnerHost},
		{Name: "fe_flags", Offset: offsetFrontendFlags, Size: 4, Owner: OwnerClient},
		{Name: "mouse_x", Offset: offsetMouseX, Size: 2, Owner: OwnerClient},
		{Name: "mouse_y", Offset: offsetMouseY, Size: 2, Owner: OwnerClient},
		{Name: "mouse_wheel", Offset: offsetMouseWheel, Size: 2, Owner: OwnerClient},
		{Name: "mouse_flags", Offset: offsetMouseFlags, Size: 1, Owner: OwnerClient},
		{Name: "needs_next_frame", Offset: offsetNeedsNextFrame, Size: 1, Owner: OwnerShared},
		{Name: "be_flags", Offset: offsetBackendFlags, Size: 4, Owner: OwnerHost},
		{Name: "_pad1", Offset: offsetPad1, Size: 4, Owner: OwnerPadding},
		{Name: "touches", Offset: offsetTouches, Size: 16, Owner: OwnerClient},
		{Name: "scroll_x", Offset: offsetScrollX, Size: 4, Owner: OwnerHost},
		{Name: "scroll_y", Offset: offsetScrollY, Size: 4, Owner: OwnerHost},
		{Name: "commands_set", Offset: offsetCommandsSet, Size: 4, Owner: OwnerShared, Atomic: true},
		{Name: "response_set", Offset: offsetResponseSet, Size: 4, Owner: OwnerShared, Atomic: true},
		{Name: "commands", Offset: offsetCommands, Size: FrameSize, Owner: OwnerClient},
		{Name: "response", Offset: offsetResponse, Size: FrameSize, Owner: OwnerHost},
	},
}

// Frontend flag bits (fe_flags, written by the client).
const (
	FrontendFocused uint32 = 1 << 0
	FrontendVisible uint32 = 1 << 1
)

// Backend flag bits (be_flags, written by the host).
const (
	BackendLoading      uint32 = 1 << 0
	BackendCanGoBack    uint32 = 1 << 1
	BackendCanGoForward uint32 = 1 << 2
	BackendHasDocument  uint32 = 1 << 3
	BackendMuted        uint32 = 1 << 4
	BackendFullscreen   uint32 = 1 << 6
)

// Mouse button bits (mouse_flags).
const (
	MouseLeft   uint8 = 1 << 0
	MouseMiddle uint8 = 1 << 1
	MouseRight  uint8 = 1 << 2
)

// MouseOutside is the mouse_x value meaning the pointer left the view.
const MouseOutside = math.MaxUint16

// LoadingComplete is the loading_progress value of a finished load.
const LoadingComplete = math.MaxUint16

// NoTouch is the touch coordinate magnitude meaning "no touch".
const NoTouch = 1e30

// Vec2 is a touch point in view pixels.
type Vec2 struct {
	X, Y float32
}

// Active reports whether the touch slot holds a live touch point.
func (v Vec2) Active() bool { return math.Abs(float64(v.X)) < NoTouch }

// Entry is an instance record viewed through EntrySchema.
type Entry struct {
	buffer []byte
}

// NewEntry validates buffer against EntrySchema and wraps it.
func NewEntry(buffer []byte) (Entry, error) {
	if err := EntrySchema.Check(buffer); err != nil {
		return Entry{}, err
	}
	return Entry{buffer: buffer[:EntrySize]}, nil
}

// Bytes returns the whole record.
func (e Entry) Bytes() []byte { return e.buffer }

// Commands returns the client-to-host buffer.
func (e Entry) Commands() []byte { return e.buffer[offsetCommands : offsetCommands+FrameSize] }

// Response returns the host-to-client buffer.
func (e Entry) Response() []byte { return e.buffer[offsetResponse : offsetResponse+FrameSize] }

// CommandsSet acquires the number of published client commands.
func (e Entry) CommandsSet() uint32 { return shm.Acquire(e.buffer, offsetCommandsSet) }

// PublishCommands publishes count records in the commands buffer, or
// releases the buffer back to the client when count is zero.
func (e Entry) PublishCommands(count uint32) { shm.Publish(e.buffer, offsetCommandsSet, count) }

// ResponseSet acquires the number of published host responses.
func (e Entry) ResponseSet() uint32 { return shm.Acquire(e.buffer, offsetResponseSet) }

// PublishResponse publishes count records in the response buffer, or
// releases it back to the host when count is zero.
func (e Entry) PublishResponse(count uint32) { shm.Publish(e.buffer, offsetResponseSet, count) }

func (e Entry) AliveTime() uint64 { return binary.LittleEndian.Uint64(e.buffer[offsetAliveTime:]) }

func (e Entry) SetAliveTime(unixSeconds uint64) {
	binary.LittleEndian.PutUint64(e.buffer[offsetAliveTime:], unixSeconds)
}

func (e Entry) ZoomLevel() float32 { return e.float32At(offsetZoomLevel) }

func (e Entry) SetZoomLevel(level float32) { e.putFloat32(offsetZoomLevel, level) }

// Handle is the composited surface handle (or, in passthrough mode,
// the current export index).
func (e Entry) Handle() uint64 { return shm.Acquire64(e.buffer, offsetHandle) }

func (e Entry) SetHandle(handle uint64) { shm.Publish64(e.buffer, offsetHandle, handle) }

func (e Entry) PopupHandle() uint64 { return shm.Acquire64(e.buffer, offsetPopupHandle) }

func (e Entry) SetPopupHandle(handle uint64) { shm.Publish64(e.buffer, offsetPopupHandle, handle) }

// PopupDimensions returns the popup rectangle as normalized x1, y1, x2, y2.
func (e Entry) PopupDimensions() [4]float32 {
	var result [4]float32
	for index := range result {
		result[index] = e.float32At(offsetPopupDimensions + 4*index)
	}
	return result
}

func (e Entry) SetPopupDimensions(dimensions [4]float32) {
	for index, value := range dimensions {
		e.putFloat32(offsetPopupDimensions+4*index, value)
	}
}

func (e Entry) Width() uint32  { return binary.LittleEndian.Uint32(e.buffer[offsetWidth:]) }
func (e Entry) Height() uint32 { return binary.LittleEndian.Uint32(e.buffer[offsetHeight:]) }

func (e Entry) SetSize(width, height uint32) {
	binary.LittleEndian.PutUint32(e.buffer[offsetWidth:], width)
	binary.LittleEndian.PutUint32(e.buffer[offsetHeight:], height)
}

func (e Entry) LoadingProgress() uint16 {
	return binary.LittleEndian.Uint16(e.buffer[offsetLoadingProgress:])
}

func (e Entry) SetLoadingProgress(progress uint16) {
	binary.LittleEndian.PutUint16(e.buffer[offsetLoadingProgress:], progress)
}

func (e Entry) Cursor() uint8          { return e.buffer[offsetCursor] }
func (e Entry) SetCursor(cursor uint8) { e.buffer[offsetCursor] = cursor }

func (e Entry) AudioPeak() uint8        { return e.buffer[offsetAudioPeak] }
func (e Entry) SetAudioPeak(peak uint8) { e.buffer[offsetAudioPeak] = peak }

func (e Entry) FrontendFlags() uint32 {
	return binary.LittleEndian.Uint32(e.buffer[offsetFrontendFlags:])
}

func (e Entry) SetFrontendFlags(flags uint32) {
	binary.LittleEndian.PutUint32(e.buffer[offsetFrontendFlags:], flags)
}

func (e Entry) MouseX() uint16 { return binary.LittleEndian.Uint16(e.buffer[offsetMouseX:]) }
func (e Entry) MouseY() uint16 { return binary.LittleEndian.Uint16(e.buffer[offsetMouseY:]) }

func (e Entry) SetMouse(x, y uint16) {
	binary.LittleEndian.PutUint16(e.buffer[offsetMouseX:], x)
	binary.LittleEndian.PutUint16(e.buffer[offsetMouseY:], y)
}

func (e Entry) MouseWheel() int16 {
	return int16(binary.LittleEndian.Uint16(e.buffer[offsetMouseWheel:]))
}

func (e Entry) SetMouseWheel(delta int16) {
	binary.LittleEndian.PutUint16(e.buffer[offsetMouseWheel:], uint16(delta))
}

func (e Entry) MouseFlags() uint8         { return e.buffer[offsetMouseFlags] }
func (e Entry) SetMouseFlags(flags uint8) { e.buffer[offsetMouseFlags] = flags }

func (e Entry) NeedsNextFrame() uint8          { return e.buffer[offsetNeedsNextFrame] }
func (e Entry) SetNeedsNextFrame(frames uint8) { e.buffer[offsetNeedsNextFrame] = frames }

func (e Entry) BackendFlags() uint32 {
	return binary.LittleEndian.Uint32(e.buffer[offsetBackendFlags:])
}

func (e Entry) SetBackendFlags(flags uint32) {
	binary.LittleEndian.PutUint32(e.buffer[offsetBackendFlags:], flags)
}

// Touches returns both touch slots.
func (e Entry) Touches() [2]Vec2 {
	return [2]Vec2{
		{X: e.float32At(offsetTouches), Y: e.float32At(offsetTouches + 4)},
		{X: e.float32At(offsetTouches + 8), Y: e.float32At(offsetTouches + 12)},
	}
}

func (e Entry) SetTouch(slot int, point Vec2) {
	e.putFloat32(offsetTouches+8*slot, point.X)
	e.putFloat32(offsetTouches+8*slot+4, point.Y)
}

func (e Entry) Scroll() (x, y float32) {
	return e.float32At(offsetScrollX), e.float32At(offsetScrollY)
}

func (e Entry) SetScroll(x, y float32) {
	e.putFloat32(offsetScrollX, x)
	e.putFloat32(offsetScrollY, y)
}

func (e Entry) float32At(offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(e.buffer[offset:]))
}

func (e Entry) putFloat32(offset int, value float32) {
	binary.LittleEndian.PutUint32(e.buffer[offset:], math.Float32bits(value))
}
