// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package strview provides a zero-copy view over byte slices for
// parsing command payloads and configuration blocks read out of shared
// memory.
//
// A [View] aliases the memory it was created from. Views taken from a
// mapped segment are only valid until the owning side reclaims the
// buffer (the publish counter is reset), so callers that retain data
// past the current tick must copy it with [View.String] or
// [View.Bytes].
//
// Splitting follows the conventions of the wire protocol: multi-part
// payloads are joined with 0x01, key/value lists alternate keys and
// values under the same separator, and configuration blocks are
// newline-separated key=value lines. Numeric parsing accepts decimal
// and 0x-prefixed hexadecimal and falls back to a caller-supplied
// default instead of returning an error, because malformed client
// input must never stop a tick.
package strview
