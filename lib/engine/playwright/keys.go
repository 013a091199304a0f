// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package playwright

import "fmt"

var namedKeys = map[int]string{
	0x08: "Backspace",
	0x09: "Tab",
	0x0D: "Enter",
	0x10: "Shift",
	0x11: "Control",
	0x12: "Alt",
	0x13: "Pause",
	0x14: "CapsLock",
	0x1B: "Escape",
	0x20: "Space",
	0x21: "PageUp",
	0x22: "PageDown",
	0x23: "End",
	0x24: "Home",
	0x25: "ArrowLeft",
	0x26: "ArrowUp",
	0x27: "ArrowRight",
	0x28: "ArrowDown",
	0x2D: "Insert",
	0x2E: "Delete",
	0x5B: "Meta",
	0x5D: "ContextMenu",
	0xBA: "Semicolon",
	0xBB: "Equal",
	0xBC: "Comma",
	0xBD: "Minus",
	0xBE: "Period",
	0xBF: "Slash",
	0xC0: "Backquote",
	0xDB: "BracketLeft",
	0xDC: "Backslash",
	0xDD: "BracketRight",
	0xDE: "Quote",
}

// keyName maps a Windows virtual-key code to a key name the driver
// understands.
func keyName(code int) (string, bool) {
	switch {
	case code >= '0' && code <= '9':
		return fmt.Sprintf("Digit%c", rune(code)), true
	case code >= 'A' && code <= 'Z':
		return fmt.Sprintf("Key%c", rune(code)), true
	case code >= 0x60 && code <= 0x69:
		return fmt.Sprintf("Numpad%d", code-0x60), true
	case code >= 0x70 && code <= 0x7B:
		return fmt.Sprintf("F%d", code-0x6F), true
	}
	name, ok := namedKeys[code]
	return name, ok
}
