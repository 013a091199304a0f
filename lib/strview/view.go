// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package strview

import (
	"bytes"
	"math"
	"strconv"
)

// View is a read-only window onto a byte slice. The zero value is an
// empty view.
type View []byte

// Of returns a view over data without copying.
func Of(data []byte) View { return View(data) }

// FromString returns a view over the bytes of s. The conversion
// copies; use it for literals and tests, not on hot paths.
func FromString(s string) View { return View(s) }

// CString returns the view up to (not including) the first NUL byte,
// or the whole view when there is none. Configuration blocks written
// by the client are NUL-terminated inside a larger buffer.
func CString(data []byte) View {
	if index := bytes.IndexByte(data, 0); index >= 0 {
		return View(data[:index])
	}
	return View(data)
}

// Len returns the number of bytes in the view.
func (v View) Len() int { return len(v) }

// Empty reports whether the view has no bytes.
func (v View) Empty() bool { return len(v) == 0 }

// String copies the view into a new string.
func (v View) String() string { return string(v) }

// Bytes copies the view into a new slice.
func (v View) Bytes() []byte { return bytes.Clone(v) }

// Equal reports whether the view holds exactly s.
func (v View) Equal(s string) bool { return string(v) == s }

// HasPrefix reports whether the view begins with prefix.
func (v View) HasPrefix(prefix string) bool {
	return len(v) >= len(prefix) && string(v[:len(prefix)]) == prefix
}

// HasPrefixFold is HasPrefix with ASCII case folding.
func (v View) HasPrefixFold(prefix string) bool {
	return len(v) >= len(prefix) && bytes.EqualFold(v[:len(prefix)], []byte(prefix))
}

// Sub returns the view from offset to the end. An offset past the end
// yields an empty view.
func (v View) Sub(offset int) View {
	if offset >= len(v) || offset < 0 {
		return nil
	}
	return v[offset:]
}

// Slice returns at most length bytes starting at offset, clamped to
// the view.
func (v View) Slice(offset, length int) View {
	if offset >= len(v) || offset < 0 || length <= 0 {
		return nil
	}
	end := offset + length
	if end > len(v) {
		end = len(v)
	}
	return v[offset:end]
}

// Trim removes leading and trailing ASCII whitespace.
func (v View) Trim() View {
	return View(bytes.TrimSpace(v))
}

// Pair splits at the first separator. Without a separator the whole
// view is the first half and the second half is empty.
func (v View) Pair(separator byte) (View, View) {
	index := bytes.IndexByte(v, separator)
	if index < 0 {
		return v, nil
	}
	return v[:index], v[index+1:]
}

// KeyValue is like Pair but trims both halves, and without a separator
// the whole view becomes the value.
func (v View) KeyValue(separator byte) (View, View) {
	index := bytes.IndexByte(v, separator)
	if index < 0 {
		return nil, v.Trim()
	}
	return v[:index].Trim(), v[index+1:].Trim()
}

// Split cuts the view at every separator. skipEmpty drops empty
// pieces, trim trims each piece, and limit (when positive) caps the
// number of pieces: the last piece keeps the remainder unsplit.
func (v View) Split(separator byte, skipEmpty, trim bool, limit int) []View {
	var pieces []View
	rest := v
	for {
		var piece View
		last := limit > 0 && len(pieces)+1 == limit
		index := -1
		if !last {
			index = bytes.IndexByte(rest, separator)
		}
		if index < 0 {
			piece = rest
		} else {
			piece = rest[:index]
		}
		if trim {
			piece = piece.Trim()
		}
		if !skipEmpty || len(piece) > 0 {
			pieces = append(pieces, piece)
		}
		if index < 0 {
			return pieces
		}
		rest = rest[index+1:]
	}
}

// Pairs splits the view at every separator and groups the pieces into
// consecutive key/value pairs. A trailing unpaired key is dropped.
func (v View) Pairs(separator byte) [][2]View {
	pieces := v.Split(separator, false, false, 0)
	if len(pieces) == 1 && len(pieces[0]) == 0 {
		return nil
	}
	result := make([][2]View, 0, len(pieces)/2)
	for index := 0; index+1 < len(pieces); index += 2 {
		result = append(result, [2]View{pieces[index], pieces[index+1]})
	}
	return result
}

// Uint parses an unsigned decimal or 0x-prefixed hexadecimal number
// from the start of the view. Parsing stops at the first byte that is
// not a digit. Returns fallback when no digit was consumed.
func (v View) Uint(fallback uint64) uint64 {
	if len(v) > 2 && v[0] == '0' && (v[1] == 'x' || v[1] == 'X') {
		var result uint64
		for _, character := range v[2:] {
			digit, ok := hexDigit(character)
			if !ok {
				break
			}
			result = result<<4 | uint64(digit)
		}
		return result
	}
	var result uint64
	consumed := 0
	for _, character := range v {
		if character < '0' || character > '9' {
			break
		}
		result = result*10 + uint64(character-'0')
		consumed++
	}
	if consumed == 0 {
		return fallback
	}
	return result
}

// Int parses a signed number with an optional leading sign. Hex input
// is accepted after the sign.
func (v View) Int(fallback int64) int64 {
	negative := false
	body := v
	if len(body) > 0 && (body[0] == '-' || body[0] == '+') {
		negative = body[0] == '-'
		body = body[1:]
	}
	const missing = math.MaxUint64
	magnitude := body.Uint(missing)
	if magnitude == missing {
		return fallback
	}
	if negative {
		return -int64(magnitude)
	}
	return int64(magnitude)
}

// Float parses a decimal floating-point number. Trailing garbage after
// a valid prefix is ignored, matching the integer parsers.
func (v View) Float(fallback float64) float64 {
	end := 0
	for end < len(v) {
		character := v[end]
		if (character >= '0' && character <= '9') || character == '.' || character == '-' ||
			character == '+' || character == 'e' || character == 'E' {
			end++
			continue
		}
		break
	}
	for end > 0 {
		value, err := strconv.ParseFloat(string(v[:end]), 64)
		if err == nil {
			return value
		}
		end--
	}
	return fallback
}

// Bool interprets the view as a number and reports whether it is
// non-zero. Empty or non-numeric input yields fallback.
func (v View) Bool(fallback bool) bool {
	const missing = math.MaxUint64
	value := v.Uint(missing)
	if value == missing {
		return fallback
	}
	return value != 0
}

func hexDigit(character byte) (byte, bool) {
	switch {
	case character >= '0' && character <= '9':
		return character - '0', true
	case character >= 'a' && character <= 'f':
		return character - 'a' + 10, true
	case character >= 'A' && character <= 'F':
		return character - 'A' + 10, true
	}
	return 0, false
}

// Join concatenates parts with separator into a new slice.
func Join(parts []string, separator byte) []byte {
	size := 0
	for _, part := range parts {
		size += len(part)
	}
	if len(parts) > 1 {
		size += len(parts) - 1
	}
	result := make([]byte, 0, size)
	for index, part := range parts {
		if index > 0 {
			result = append(result, separator)
		}
		result = append(result, part...)
	}
	return result
}
