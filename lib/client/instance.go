// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/webhost/lib/codec"
	"github.com/bureau-foundation/webhost/lib/command"
	"github.com/bureau-foundation/webhost/lib/layout"
	"github.com/bureau-foundation/webhost/lib/shm"
)

// Setting is one line of the configuration block.
type Setting struct {
	Key   string
	Value string
}

// InstanceOptions configure CreateInstance.
type InstanceOptions struct {
	Width, Height uint32

	// Settings are written as "key=value" lines into the response
	// buffer, where the host reads them once at creation.
	Settings []Setting

	// Compression applies to overflow requests.
	Compression command.Compression

	Logger *slog.Logger
}

// Event is one record the host published.
type Event struct {
	Code    command.Code
	Payload []byte
}

// Name returns the event name, or the hex code for unknown codes.
func (e Event) Name() string { return command.Events.Name(e.Code) }

// Decode unmarshals a structured payload.
func (e Event) Decode(v any) error {
	return codec.Unmarshal(e.Payload, v)
}

// Parts splits a multi-part payload.
func (e Event) Parts() []string {
	return strings.Split(string(e.Payload), string(rune(command.PartSeparator)))
}

// Instance is the client end of one instance record.
type Instance struct {
	segment *shm.Segment
	entry   layout.Entry
	outbox  *command.Outbox
	reader  *command.Reader
}

// CreateInstance creates the instance record called name, writes its
// size and configuration block and clears the touch slots. The record
// must exist before its id is listed in the directory.
func CreateInstance(namespace shm.Namespace, name string, options InstanceOptions) (*Instance, error) {
	var block bytes.Buffer
	for _, setting := range options.Settings {
		if strings.ContainsAny(setting.Key, "=\n") || strings.ContainsRune(setting.Value, '\n') {
			return nil, fmt.Errorf("setting %q: keys may not contain '=' or newlines and values may not contain newlines", setting.Key)
		}
		fmt.Fprintf(&block, "%s=%s\n", setting.Key, setting.Value)
	}
	if block.Len() >= layout.FrameSize {
		return nil, fmt.Errorf("configuration block is %d bytes, limit %d", block.Len(), layout.FrameSize-1)
	}

	segment, err := namespace.CreateNew(name, layout.EntrySize)
	if err != nil {
		return nil, fmt.Errorf("creating instance %s: %w", name, err)
	}
	entry, err := layout.NewEntry(segment.Bytes())
	if err != nil {
		segment.Unlink()
		return nil, err
	}
	entry.SetSize(options.Width, options.Height)
	entry.SetMouse(layout.MouseOutside, 0)
	for slot := range 2 {
		entry.SetTouch(slot, layout.Vec2{X: layout.NoTouch, Y: layout.NoTouch})
	}
	response := entry.Response()
	copy(response, block.Bytes())
	response[block.Len()] = 0

	return &Instance{
		segment: segment,
		entry:   entry,
		outbox: command.NewOutbox(command.OutboxConfig{
			Table:       command.Requests,
			Namespace:   namespace,
			Instance:    name,
			Compression: options.Compression,
			Logger:      options.Logger,
		}),
		reader: &command.Reader{
			Namespace: namespace,
			Instance:  name,
			Logger:    options.Logger,
		},
	}, nil
}

// Name returns the segment name.
func (i *Instance) Name() string { return i.segment.Name() }

// Entry exposes the record for fields without a helper.
func (i *Instance) Entry() layout.Entry { return i.entry }

// Send queues a request.
func (i *Instance) Send(code command.Code, payload string) {
	i.outbox.SetString(code, payload)
}

// SendParts queues a multi-part request.
func (i *Instance) SendParts(code command.Code, parts ...string) {
	i.outbox.SetParts(code, parts...)
}

// Reply answers a continuation the host announced with id.
func (i *Instance) Reply(id uint64, value string) {
	i.outbox.Set(command.CodeReply, command.ReplyPayload(id, value))
}

// Pending returns the number of queued requests.
func (i *Instance) Pending() int { return i.outbox.Len() }

// Flush publishes queued requests when the host has consumed the
// previous batch. It returns how many were published; zero with a nil
// error means the host is still busy or nothing was queued.
func (i *Instance) Flush() (int, error) {
	if i.entry.CommandsSet() != 0 || i.outbox.Len() == 0 {
		return 0, nil
	}
	count, err := i.outbox.Flush(i.entry.Commands())
	if count > 0 {
		i.entry.PublishCommands(count)
	}
	return int(count), err
}

// Busy reports whether the host has not yet consumed the last batch.
func (i *Instance) Busy() bool { return i.entry.CommandsSet() != 0 }

// Poll copies out the events the host published, if any, and hands the
// buffer back. Overflow events are resolved and decompressed.
func (i *Instance) Poll() ([]Event, error) {
	count := i.entry.ResponseSet()
	if count == 0 {
		return nil, nil
	}
	var events []Event
	err := i.reader.Decode(i.entry.Response(), count, func(record command.Record) {
		events = append(events, Event{Code: record.Code, Payload: bytes.Clone(record.Payload)})
	})
	i.entry.PublishResponse(0)
	return events, err
}

// Resize sets the view size the host applies on its next update.
func (i *Instance) Resize(width, height uint32) {
	i.entry.SetSize(width, height)
}

// SetFlags sets the focused and visible bits.
func (i *Instance) SetFlags(focused, visible bool) {
	var flags uint32
	if focused {
		flags |= layout.FrontendFocused
	}
	if visible {
		flags |= layout.FrontendVisible
	}
	i.entry.SetFrontendFlags(flags)
}

// RequestFrames asks the host to produce the next frames even when the
// page is idle.
func (i *Instance) RequestFrames(frames uint8) {
	i.entry.SetNeedsNextFrame(frames)
}

// MoveMouse places the pointer. Use layout.MouseOutside for x when the
// pointer left the view.
func (i *Instance) MoveMouse(x, y uint16) {
	i.entry.SetMouse(x, y)
}

// SetButtons sets the pressed mouse buttons (layout.MouseLeft and so
// on).
func (i *Instance) SetButtons(buttons uint8) {
	i.entry.SetMouseFlags(buttons)
}

// Wheel adds delta to the pending wheel movement.
func (i *Instance) Wheel(delta int16) {
	i.entry.SetMouseWheel(i.entry.MouseWheel() + delta)
}

// Touch presses or moves a touch slot.
func (i *Instance) Touch(slot int, x, y float32) {
	i.entry.SetTouch(slot, layout.Vec2{X: x, Y: y})
}

// Lift releases a touch slot.
func (i *Instance) Lift(slot int) {
	i.entry.SetTouch(slot, layout.Vec2{X: layout.NoTouch, Y: layout.NoTouch})
}

// Frame reports the host-written texture state.
type Frame struct {
	Handle      uint64
	PopupHandle uint64
	PopupArea   [4]float32
	Progress    uint16
	Flags       uint32
}

// Frame reads the host-written fields.
func (i *Instance) Frame() Frame {
	return Frame{
		Handle:      i.entry.Handle(),
		PopupHandle: i.entry.PopupHandle(),
		PopupArea:   i.entry.PopupDimensions(),
		Progress:    i.entry.LoadingProgress(),
		Flags:       i.entry.BackendFlags(),
	}
}

// Close releases the record. With unlink the name is removed as well;
// the host closes its mapping when the id leaves the directory.
func (i *Instance) Close(unlink bool) error {
	errs := []error{i.outbox.Close()}
	if unlink {
		errs = append(errs, i.segment.Unlink())
	} else {
		errs = append(errs, i.segment.Close())
	}
	return errors.Join(errs...)
}
