// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package command implements the record protocol carried in the two
// buffers of an instance record.
//
// A buffer holds a sequence of records:
//
//	code (1 byte) | length (u16 LE) | payload (length bytes)
//
// followed by a NUL that is written but not counted, so the next
// record starts at offset+3+length. The writer publishes the record
// count with shm.Publish; the reader consumes the records and
// publishes zero to hand the buffer back.
//
// Codes are direction specific. [Requests] lists what a client may
// send, [Events] what the host emits. Each code carries [Attributes]:
// whether a newer value overrides a pending one, whether the request
// needs full access, and whether it is applied at instance
// construction. Unknown codes queue normally and are unprivileged.
//
// Payloads larger than 16 KiB travel out of band. The writer creates a
// segment named "<instance>_<key>" holding code, payload and a NUL,
// and packs a [CodeLarge] record whose payload is a [Descriptor]. The
// creator unlinks the segment at its next flush, which only happens
// once the reader has reset the publish counter. With compression
// enabled the segment holds an lz4 or zstd block and the descriptor
// grows from 8 to 13 bytes to carry the tag and the raw size.
//
// [Outbox] queues records between flushes, coalesces overriding codes,
// and defers whatever does not fit into the next flush. [Reader]
// decodes a buffer and resolves overflow descriptors. [ReplyTable]
// pairs reply ids sent to the client with the engine requests they
// resume; ids are never reused and late or unknown replies are
// ignored.
package command
