// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used for structured event
// payloads in the host-to-client response buffer.
//
// Most responses are plain strings (a URL, a title, a status line) and
// travel as raw bytes. Events that carry several fields (load_start,
// load_end, load_failed, popup, jsdialog, download, found_result, ...)
// are encoded as CBOR maps instead of ad-hoc separator-joined strings,
// so a client can decode them without knowing the field order and new
// fields can be added without breaking older clients.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): the
// same event always produces identical bytes, which keeps the
// coalescing of overriding responses byte-exact and lets tests compare
// encoded payloads directly.
//
//	payload, err := codec.Marshal(event)
//	err = codec.Unmarshal(payload, &event)
//
// Payload types use `cbor` struct tags with short snake_case keys.
package codec
