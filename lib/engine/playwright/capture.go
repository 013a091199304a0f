// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package playwright

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// capturer turns page screenshots into BGRA frames. Identical
// screenshots are reported unchanged without decoding.
type capturer struct {
	last   []byte
	frame  *image.RGBA
	pixels []byte
}

func newCapturer() *capturer { return &capturer{} }

func (c *capturer) decode(data []byte) (pixels []byte, width, height int, changed bool, err error) {
	if c.frame != nil && bytes.Equal(data, c.last) {
		bounds := c.frame.Bounds()
		return c.pixels, bounds.Dx(), bounds.Dy(), false, nil
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, false, fmt.Errorf("decoding capture: %w", err)
	}
	bounds := decoded.Bounds()
	if c.frame == nil || c.frame.Bounds().Size() != bounds.Size() {
		c.frame = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		c.pixels = make([]byte, len(c.frame.Pix))
	}
	xdraw.Copy(c.frame, image.Point{}, decoded, bounds, xdraw.Src, nil)
	toBGRA(c.pixels, c.frame.Pix)
	c.last = append(c.last[:0], data...)
	return c.pixels, bounds.Dx(), bounds.Dy(), true, nil
}

func toBGRA(destination, source []byte) {
	for i := 0; i+4 <= len(source); i += 4 {
		destination[i+0] = source[i+2]
		destination[i+1] = source[i+1]
		destination[i+2] = source[i+0]
		destination[i+3] = source[i+3]
	}
}

// decodeImage turns a base64 image into PNG bytes no larger than
// maxSize pixels on either side. Undecodable input yields nil.
func decodeImage(encoded string, maxSize int) []byte {
	if encoded == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	bounds := decoded.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxSize > 0 && (width > maxSize || height > maxSize) {
		if width >= height {
			width, height = maxSize, max(1, height*maxSize/width)
		} else {
			width, height = max(1, width*maxSize/height), maxSize
		}
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), decoded, bounds, xdraw.Src, nil)
		decoded = scaled
	}
	var out bytes.Buffer
	if err := png.Encode(&out, decoded); err != nil {
		return nil
	}
	return out.Bytes()
}
