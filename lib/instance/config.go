// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instance

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/webhost/lib/command"
	"github.com/bureau-foundation/webhost/lib/engine"
	"github.com/bureau-foundation/webhost/lib/strview"
)

// Config is the configuration block a client writes into the response
// buffer before adding the instance id to the directory: one key=value
// per line, NUL terminated.
type Config struct {
	UUID int64

	// Passthrough exports frames instead of compositing them.
	Passthrough   bool
	RedirectAudio bool

	// DevTools is the UUID of the instance to inspect, or zero.
	DevTools        int64
	DevToolsInspect *[2]int

	// BackgroundColor is 0xAARRGGBB.
	BackgroundColor uint32

	Fonts           engine.Fonts
	DefaultEncoding string
	AcceptLanguages string
	Features        map[string]bool
	DataKey         string
	HasDataKey      bool

	Compression command.Compression

	// Warnings lists lines that could not be applied.
	Warnings []string
}

var featureKeys = []string{
	"imageLoading",
	"javascript",
	"remoteFonts",
	"localStorage",
	"databases",
	"webGL",
	"shrinkImagesToFit",
	"textAreaResize",
	"tabToLinks",
}

// ParseConfig reads a configuration block. Unknown keys are ignored.
func ParseConfig(block strview.View) Config {
	config := Config{Passthrough: true, Features: make(map[string]bool)}
	for _, line := range block.Split('\n', true, true, 0) {
		key, value := line.Pair('=')
		switch key.String() {
		case "UUID":
			config.UUID = value.Int(0)
		case "directRender":
			config.Passthrough = value.Int(0) != 0
		case "redirectAudio":
			config.RedirectAudio = value.Int(0) != 0
		case "devTools":
			config.DevTools = value.Int(0)
		case "devToolsInspect":
			x, y := value.Pair(',')
			config.DevToolsInspect = &[2]int{int(x.Int(0)), int(y.Int(0))}
		case "backgroundColor":
			config.BackgroundColor = uint32(value.Uint(0))
		case "standardFontFamily":
			config.Fonts.Standard = value.String()
		case "sansSerifFontFamily":
			config.Fonts.SansSerif = value.String()
		case "serifFontFamily":
			config.Fonts.Serif = value.String()
		case "cursiveFontFamily":
			config.Fonts.Cursive = value.String()
		case "fantasyFontFamily":
			config.Fonts.Fantasy = value.String()
		case "fixedFontFamily":
			config.Fonts.Fixed = value.String()
		case "minimumFontSize":
			config.Fonts.MinimumSize = int(value.Int(0))
		case "defaultFontSize":
			config.Fonts.DefaultSize = int(value.Int(0))
		case "defaultFixedFontSize":
			config.Fonts.DefaultFixedSize = int(value.Int(0))
		case "defaultEncoding":
			config.DefaultEncoding = value.String()
		case "acceptLanguages":
			config.AcceptLanguages = value.String()
		case "dataKey":
			// The key names one directory under the profile root.
			key := value.String()
			if key != "" && (!filepath.IsLocal(key) || key == "." || strings.ContainsAny(key, `/\`)) {
				config.Warnings = append(config.Warnings, fmt.Sprintf("dataKey %q is not a single path element", key))
				continue
			}
			config.DataKey = key
			config.HasDataKey = true
		case "compressLarge":
			compression, err := command.ParseCompression(value.String())
			if err != nil {
				config.Warnings = append(config.Warnings, fmt.Sprintf("compressLarge: %v", err))
				continue
			}
			config.Compression = compression
		default:
			for _, feature := range featureKeys {
				if key.Equal(feature) {
					config.Features[feature] = value.Uint(0) != 0
				}
			}
		}
	}
	return config
}
