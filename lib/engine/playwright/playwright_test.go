// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package playwright

import (
	"bytes"
	"encoding/base64"
	"go/format"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"
)

func encodePNG(t *testing.T, width, height int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetNRGBA(x, y, c)
		}
	}
	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return out.Bytes()
}

func TestCapturerConvertsToBGRA(t *testing.T) {
	capture := newCapturer()
	data := encodePNG(t, 2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	pixels, width, height, changed, err := capture.decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if width != 2 || height != 1 || !changed {
		t.Fatalf("decode = %dx%d changed=%v, want 2x1 true", width, height, changed)
	}
	if !bytes.Equal(pixels[:4], []byte{30, 20, 10, 255}) {
		t.Errorf("first pixel = %v, want BGRA 30 20 10 255", pixels[:4])
	}

	if _, _, _, changed, _ := capture.decode(data); changed {
		t.Error("identical capture reported as changed")
	}
	other := encodePNG(t, 3, 2, color.NRGBA{A: 255})
	if _, width, height, changed, _ := capture.decode(other); !changed || width != 3 || height != 2 {
		t.Errorf("resized capture = %dx%d changed=%v", width, height, changed)
	}
}

func TestDecodeImageScalesDown(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(encodePNG(t, 64, 32, color.NRGBA{G: 255, A: 255}))
	out := decodeImage(encoded, 16)
	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if size := decoded.Bounds().Size(); size.X != 16 || size.Y != 8 {
		t.Errorf("scaled size = %v, want 16x8", size)
	}
	if decodeImage("not base64!", 0) != nil {
		t.Error("invalid input produced an image")
	}
}

func TestKeyName(t *testing.T) {
	for code, want := range map[int]string{
		'A':  "KeyA",
		'7':  "Digit7",
		0x0D: "Enter",
		0x25: "ArrowLeft",
		0x70: "F1",
		0x7B: "F12",
		0x61: "Numpad1",
	} {
		if got, ok := keyName(code); !ok || got != want {
			t.Errorf("keyName(%#x) = %q, %v; want %q", code, got, ok, want)
		}
	}
	if _, ok := keyName(0xFF); ok {
		t.Error("keyName(0xff) resolved")
	}
}

func TestFirstLanguage(t *testing.T) {
	if got := firstLanguage("de-DE;q=0.9, en"); got != "de-DE" {
		t.Errorf("firstLanguage = %q, want de-DE", got)
	}
	if got := firstLanguage(""); got != "" {
		t.Errorf("firstLanguage(empty) = %q", got)
	}
}

func TestBrowserSourceIsFormatted(t *testing.T) {
	source, err := os.ReadFile("browser.go")
	if err != nil {
		t.Fatal(err)
	}
	formatted, err := format.Source(source)
	if err != nil {
		t.Fatalf("format.Source: %v", err)
	}
	if !bytes.Equal(formatted, source) {
		t.Error("browser.go is not gofmt-formatted")
	}
}
