// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/bureau-foundation/webhost/lib/strview"
)

// RecordHeaderSize is the size of the code and length prefix.
const RecordHeaderSize = 3

// PartSeparator joins the parts of a multi-part payload.
const PartSeparator = 0x01

// ErrTruncated is returned when a published count promises more
// records than the buffer holds.
var ErrTruncated = errors.New("command: truncated record")

// Record is one decoded entry. Payload aliases the buffer it was
// decoded from and is only valid during the visit callback.
type Record struct {
	Code    Code
	Payload strview.View
}

// PutRecord writes code and payload at offset and returns the offset
// of the next record. A NUL is stored after the payload but not
// counted in the length; the bounds check reserves room for it. It
// returns false, writing nothing, when the record does not fit.
func PutRecord(buffer []byte, offset int, code Code, payload []byte) (int, bool) {
	if len(payload) > math.MaxUint16 {
		return offset, false
	}
	if offset+len(payload)+RecordHeaderSize+1 > len(buffer) {
		return offset, false
	}
	buffer[offset] = byte(code)
	binary.LittleEndian.PutUint16(buffer[offset+1:], uint16(len(payload)))
	copy(buffer[offset+RecordHeaderSize:], payload)
	buffer[offset+RecordHeaderSize+len(payload)] = 0
	return offset + RecordHeaderSize + len(payload), true
}

// Decode walks count records from the start of buffer. It does not
// resolve overflow descriptors; see Reader for that.
func Decode(buffer []byte, count uint32, visit func(Record)) error {
	offset := 0
	for index := range count {
		if offset+RecordHeaderSize > len(buffer) {
			return fmt.Errorf("%w: record %d of %d at offset %d", ErrTruncated, index, count, offset)
		}
		code := Code(buffer[offset])
		length := int(binary.LittleEndian.Uint16(buffer[offset+1:]))
		start := offset + RecordHeaderSize
		if start+length > len(buffer) {
			return fmt.Errorf("%w: record %d of %d claims %d bytes at offset %d", ErrTruncated, index, count, length, start)
		}
		visit(Record{Code: code, Payload: strview.View(buffer[start : start+length])})
		offset = start + length
	}
	return nil
}

// ParseReply splits a reply payload "id\x01value".
func ParseReply(payload strview.View) (id uint64, value strview.View, ok bool) {
	idPart, value := payload.Pair(PartSeparator)
	if idPart.Empty() {
		return 0, nil, false
	}
	id = idPart.Uint(0)
	return id, value, id != 0
}

// ReplyPayload builds a reply payload for id.
func ReplyPayload(id uint64, value string) []byte {
	payload := make([]byte, 0, 21+len(value))
	payload = fmt.Appendf(payload, "%d", id)
	payload = append(payload, PartSeparator)
	return append(payload, value...)
}
