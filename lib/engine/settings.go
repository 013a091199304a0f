// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

// Settings configure a browser at creation.
type Settings struct {
	// ID names the browser in logs.
	ID string

	URL           string
	Width, Height int

	// Passthrough selects GPU handle painting (OnGPUPaint) over CPU
	// pixel painting.
	Passthrough bool

	// BackgroundColor is 0xAARRGGBB.
	BackgroundColor uint32

	UserAgent       string
	AcceptLanguages string
	DefaultEncoding string
	DataDirectory   string
	DataKey         string
	RedirectAudio   bool

	Fonts Fonts

	// Features holds the web feature toggles (javascript,
	// imageLoading, webGL, ...). Absent keys keep the engine default.
	Features map[string]bool

	// DevToolsFor is the UUID of the browser this one inspects, if any.
	DevToolsFor string
	// DevToolsInspect is the point to inspect, when set.
	DevToolsInspect *[2]int

	Options        map[string]string
	ResourceFilter string
	Headers        []HeaderRule
	InjectCSS      []Rule
	InjectJS       []Rule

	// Limited browsers run without full access.
	Limited bool
}

// Fonts holds font family and size preferences. Empty families and
// zero sizes keep the engine defaults.
type Fonts struct {
	Standard  string
	Fixed     string
	Serif     string
	SansSerif string
	Cursive   string
	Fantasy   string

	DefaultSize      int
	DefaultFixedSize int
	MinimumSize      int
}

// Feature reports the toggle for name, or fallback when unset.
func (s Settings) Feature(name string, fallback bool) bool {
	if value, ok := s.Features[name]; ok {
		return value
	}
	return fallback
}
