// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package strview

import "testing"

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		skipEmpty bool
		trim      bool
		limit     int
		want      []string
	}{
		{"parts", "a\x01b\x01c", false, false, 0, []string{"a", "b", "c"}},
		{"keeps empty", "a\x01\x01c", false, false, 0, []string{"a", "", "c"}},
		{"skips empty", "a\x01\x01c", true, false, 0, []string{"a", "c"}},
		{"trims", " a \x01 b", false, true, 0, []string{"a", "b"}},
		{"limit keeps remainder", "a\x01b\x01c\x01d", false, false, 3, []string{"a", "b", "c\x01d"}},
		{"empty input", "", false, false, 0, []string{""}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pieces := FromString(test.input).Split(0x01, test.skipEmpty, test.trim, test.limit)
			if len(pieces) != len(test.want) {
				t.Fatalf("Split(%q) = %d pieces, want %d", test.input, len(pieces), len(test.want))
			}
			for index, piece := range pieces {
				if piece.String() != test.want[index] {
					t.Errorf("piece %d = %q, want %q", index, piece.String(), test.want[index])
				}
			}
		})
	}
}

func TestPairAndKeyValue(t *testing.T) {
	first, second := FromString("42\x01payload\x01more").Pair(0x01)
	if first.String() != "42" || second.String() != "payload\x01more" {
		t.Errorf("Pair = (%q, %q)", first, second)
	}

	first, second = FromString("alone").Pair(0x01)
	if first.String() != "alone" || !second.Empty() {
		t.Errorf("Pair without separator = (%q, %q)", first, second)
	}

	key, value := FromString(" directRender = 0 ").KeyValue('=')
	if key.String() != "directRender" || value.String() != "0" {
		t.Errorf("KeyValue = (%q, %q)", key, value)
	}
}

func TestPairs(t *testing.T) {
	pairs := FromString("a\x011\x01b\x012\x01dangling").Pairs(0x01)
	if len(pairs) != 2 {
		t.Fatalf("Pairs = %d, want 2", len(pairs))
	}
	if pairs[1][0].String() != "b" || pairs[1][1].String() != "2" {
		t.Errorf("second pair = (%q, %q)", pairs[1][0], pairs[1][1])
	}
	if got := FromString("").Pairs(0x01); len(got) != 0 {
		t.Errorf("Pairs(empty) = %d, want 0", len(got))
	}
}

func TestNumbers(t *testing.T) {
	if got := FromString("0xFF00FF00").Uint(0); got != 0xFF00FF00 {
		t.Errorf("Uint(hex) = %x", got)
	}
	if got := FromString("1234abc").Uint(7); got != 1234 {
		t.Errorf("Uint(prefix) = %d, want 1234", got)
	}
	if got := FromString("abc").Uint(7); got != 7 {
		t.Errorf("Uint(garbage) = %d, want fallback 7", got)
	}
	if got := FromString("-15").Int(0); got != -15 {
		t.Errorf("Int(-15) = %d", got)
	}
	if got := FromString("x").Int(-1); got != -1 {
		t.Errorf("Int(garbage) = %d, want fallback", got)
	}
	if got := FromString("1.25e1px").Float(0); got != 12.5 {
		t.Errorf("Float = %v, want 12.5", got)
	}
	if got := FromString("").Float(3); got != 3 {
		t.Errorf("Float(empty) = %v, want fallback", got)
	}
	if !FromString("1").Bool(false) || FromString("0").Bool(true) || !FromString("").Bool(true) {
		t.Error("Bool parsing mismatch")
	}
}

func TestCString(t *testing.T) {
	buffer := []byte("UUID=5\n\x00garbage")
	if got := CString(buffer).String(); got != "UUID=5\n" {
		t.Errorf("CString = %q", got)
	}
}

func TestJoin(t *testing.T) {
	if got := string(Join([]string{"7", "value"}, 0x01)); got != "7\x01value" {
		t.Errorf("Join = %q", got)
	}
	if got := Join(nil, 0x01); len(got) != 0 {
		t.Errorf("Join(nil) = %q", got)
	}
}

func TestHasPrefixFold(t *testing.T) {
	if !FromString("JavaScript:alert(1)").HasPrefixFold("javascript:") {
		t.Error("HasPrefixFold should match mixed case")
	}
	if FromString("java").HasPrefixFold("javascript:") {
		t.Error("HasPrefixFold should not match shorter input")
	}
}
