// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"log/slog"

	"github.com/bureau-foundation/webhost/lib/shm"
)

// Reader decodes a published buffer, resolving overflow descriptors
// into the records they point at.
type Reader struct {
	// Namespace holds the overflow segments.
	Namespace shm.Namespace

	// Instance is the instance segment name overflow names derive from.
	Instance string

	// Logger receives overflow read failures. Nil discards them.
	Logger *slog.Logger
}

func (r *Reader) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// Decode visits count records in buffer. Overflow records are replaced
// by their inner record. An overflow segment that cannot be read is
// logged and skipped; a truncated buffer stops the walk with
// ErrTruncated.
func (r *Reader) Decode(buffer []byte, count uint32, visit func(Record)) error {
	return Decode(buffer, count, func(record Record) {
		if record.Code != CodeLarge {
			visit(record)
			return
		}
		descriptor, err := ParseDescriptor(record.Payload)
		if err != nil {
			r.logger().Warn("skipping malformed overflow descriptor",
				"instance", r.Instance,
				"error", err,
			)
			return
		}
		if err := readOverflow(r.Namespace, r.Instance, descriptor, func(inner Record) {
			if inner.Code == CodeLarge {
				r.logger().Warn("skipping nested overflow record", "instance", r.Instance, "key", descriptor.Key)
				return
			}
			visit(inner)
		}); err != nil {
			r.logger().Warn("failed to read large command",
				"instance", r.Instance,
				"key", descriptor.Key,
				"size", descriptor.Size,
				"error", err,
			)
		}
	})
}
