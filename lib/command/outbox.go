// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/webhost/lib/layout"
	"github.com/bureau-foundation/webhost/lib/shm"
	"github.com/bureau-foundation/webhost/lib/strview"
)

// OutboxConfig configures an Outbox.
type OutboxConfig struct {
	// Table supplies the Overriding attribute of each code.
	Table *Table

	// Namespace receives overflow segments.
	Namespace shm.Namespace

	// Instance is the instance segment name overflow names derive from.
	Instance string

	// Compression applies to overflow payloads.
	Compression Compression

	// Keys returns overflow keys. Nil means RandomKey.
	Keys func() int32

	Logger *slog.Logger
}

type pendingEntry struct {
	code    Code
	payload []byte
}

// Outbox queues outgoing records between flushes. Set may be called
// from any goroutine; Flush is called by the goroutine that owns the
// destination buffer.
type Outbox struct {
	config OutboxConfig

	mu      sync.Mutex
	entries []pendingEntry

	// overflow holds the segments created by the previous flush. The
	// consumer has copied them by the time the next flush runs.
	overflow []*shm.Segment
}

// NewOutbox returns an empty outbox.
func NewOutbox(config OutboxConfig) *Outbox {
	if config.Keys == nil {
		config.Keys = RandomKey
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Outbox{config: config}
}

// Set queues a record. For overriding codes an already pending record
// with the same code is replaced in place, keeping its position.
func (o *Outbox) Set(code Code, payload []byte) {
	payload = bytes.Clone(payload)
	if payload == nil {
		payload = []byte{}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.config.Table.Lookup(code).Overriding {
		for index := range o.entries {
			if o.entries[index].code == code {
				o.entries[index].payload = payload
				return
			}
		}
	}
	o.entries = append(o.entries, pendingEntry{code: code, payload: payload})
}

// SetString queues a single-part record.
func (o *Outbox) SetString(code Code, value string) {
	o.Set(code, []byte(value))
}

// SetParts queues a record whose parts are joined with PartSeparator.
func (o *Outbox) SetParts(code Code, parts ...string) {
	o.Set(code, strview.Join(parts, PartSeparator))
}

// Len returns the number of queued records.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Pending returns a copy of the queued records in order.
func (o *Outbox) Pending() []Record {
	o.mu.Lock()
	defer o.mu.Unlock()
	records := make([]Record, len(o.entries))
	for index, entry := range o.entries {
		records[index] = Record{Code: entry.code, Payload: strview.View(bytes.Clone(entry.payload))}
	}
	return records
}

// Flush releases the overflow segments of the previous flush and packs
// queued records into buffer in order, returning how many were
// written. Records larger than layout.MaxCommandSize move to an
// overflow segment and only their descriptor is packed. Packing stops
// at the first record that does not fit (or whose descriptor does not
// fit); that record and every later one stay queued unchanged.
//
// A record whose overflow segment cannot be created also stops
// packing: it stays queued with everything after it, the failure is
// returned, and the records packed before it are still counted.
func (o *Outbox) Flush(buffer []byte) (uint32, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs []error
	if err := o.releaseOverflow(); err != nil {
		errs = append(errs, err)
	}

	var count uint32
	offset := 0
	consumed := 0
	for ; consumed < len(o.entries); consumed++ {
		entry := o.entries[consumed]
		if len(entry.payload) > layout.MaxCommandSize {
			if offset+descriptorRoom > len(buffer) {
				break
			}
			segment, descriptor, err := writeOverflow(o.config.Namespace, o.config.Instance, entry.code, entry.payload, o.config.Compression, o.config.Keys)
			if err != nil {
				errs = append(errs, fmt.Errorf("deferring %s record of %d bytes: %w", o.config.Table.Name(entry.code), len(entry.payload), err))
				break
			}
			next, ok := PutRecord(buffer, offset, CodeLarge, descriptor.Encode())
			if !ok {
				segment.Unlink()
				break
			}
			o.overflow = append(o.overflow, segment)
			offset = next
			count++
			continue
		}
		next, ok := PutRecord(buffer, offset, entry.code, entry.payload)
		if !ok {
			break
		}
		offset = next
		count++
	}

	remaining := copy(o.entries, o.entries[consumed:])
	clear(o.entries[remaining:])
	o.entries = o.entries[:remaining]

	return count, errors.Join(errs...)
}

// Close discards queued records and unlinks outstanding overflow
// segments.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = nil
	return o.releaseOverflow()
}

func (o *Outbox) releaseOverflow() error {
	var firstErr error
	for _, segment := range o.overflow {
		if err := segment.Unlink(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	clear(o.overflow)
	o.overflow = o.overflow[:0]
	return firstErr
}
