// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"sync"
)

// Call is one recorded Browser method call.
type Call struct {
	Method string
	Args   []any
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Method, c.Args)
}

// FakeFactory creates Fake browsers and keeps them for inspection.
type FakeFactory struct {
	// Err, when set, fails every Create.
	Err error

	mu       sync.Mutex
	browsers []*Fake
}

// Create returns a new Fake bound to handler.
func (f *FakeFactory) Create(ctx context.Context, settings Settings, handler Handler) (Browser, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browser := &Fake{Settings: settings, Handler: handler}
	f.mu.Lock()
	f.browsers = append(f.browsers, browser)
	f.mu.Unlock()
	return browser, nil
}

// Browsers returns every browser created so far.
func (f *FakeFactory) Browsers() []*Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Fake(nil), f.browsers...)
}

// Fake is a Browser that records calls. Tests fire engine callbacks
// through Handler directly.
type Fake struct {
	Settings Settings
	Handler  Handler

	mu     sync.Mutex
	calls  []Call
	closed bool
}

func (f *Fake) record(method string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
}

// Calls returns the recorded calls in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded calls of one method.
func (f *Fake) CallsTo(method string) []Call {
	var matching []Call
	for _, call := range f.Calls() {
		if call.Method == method {
			matching = append(matching, call)
		}
	}
	return matching
}

// Reset forgets the recorded calls.
func (f *Fake) Reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) Navigate(url string)                   { f.record("Navigate", url) }
func (f *Fake) GoBack()                               { f.record("GoBack") }
func (f *Fake) GoForward()                            { f.record("GoForward") }
func (f *Fake) Reload(ignoreCache bool)               { f.record("Reload", ignoreCache) }
func (f *Fake) Stop()                                 { f.record("Stop") }
func (f *Fake) SetZoom(level float64)                 { f.record("SetZoom", level) }
func (f *Fake) Resize(width, height int)              { f.record("Resize", width, height) }
func (f *Fake) SetFocus(focused bool)                 { f.record("SetFocus", focused) }
func (f *Fake) SetHidden(hidden bool)                 { f.record("SetHidden", hidden) }
func (f *Fake) MouseMove(x, y int, leave bool)        { f.record("MouseMove", x, y, leave) }
func (f *Fake) MouseWheel(x, y, delta int)            { f.record("MouseWheel", x, y, delta) }
func (f *Fake) Touch(touch Touch)                     { f.record("Touch", touch) }
func (f *Fake) Key(event KeyEvent)                    { f.record("Key", event) }
func (f *Fake) InsertText(text string)                { f.record("InsertText", text) }
func (f *Fake) CaptureLost()                          { f.record("CaptureLost") }
func (f *Fake) EditCommand(name string)               { f.record("EditCommand", name) }
func (f *Fake) Find(query FindQuery)                  { f.record("Find", query) }
func (f *Fake) Execute(script string)                 { f.record("Execute", script) }
func (f *Fake) Scroll(x, y int, absolute bool)        { f.record("Scroll", x, y, absolute) }
func (f *Fake) SetMuted(muted bool)                   { f.record("SetMuted", muted) }
func (f *Fake) SetColorScheme(scheme string)          { f.record("SetColorScheme", scheme) }
func (f *Fake) SetOption(key, value string)           { f.record("SetOption", key, value) }
func (f *Fake) SetHeaders(rules []HeaderRule)         { f.record("SetHeaders", rules) }
func (f *Fake) SetInjections(css, js []Rule)          { f.record("SetInjections", css, js) }
func (f *Fake) SetResourceFilter(pattern string)      { f.record("SetResourceFilter", pattern) }
func (f *Fake) DevToolsMessage(method, params string) { f.record("DevToolsMessage", method, params) }
func (f *Fake) Send(channel, data, extra string)      { f.record("Send", channel, data, extra) }
func (f *Fake) FillForm(fields []string)              { f.record("FillForm", fields) }
func (f *Fake) StartDownload(url string)              { f.record("StartDownload", url) }
func (f *Fake) Source(token string, text bool)        { f.record("Source", token, text) }
func (f *Fake) History(token string, forward bool)    { f.record("History", token, forward) }
func (f *Fake) Security(token string)                 { f.record("Security", token) }
func (f *Fake) Cookies(token, url string)             { f.record("Cookies", token, url) }
func (f *Fake) WriteCookie(url string, cookie Cookie) { f.record("WriteCookie", url, cookie) }
func (f *Fake) DeleteCookies(url, name string)        { f.record("DeleteCookies", url, name) }
func (f *Fake) BeginFrame()                           { f.record("BeginFrame") }
func (f *Fake) Suspend()                              { f.record("Suspend") }
func (f *Fake) Resume()                               { f.record("Resume") }

func (f *Fake) MouseButton(x, y int, button MouseButton, down bool) {
	f.record("MouseButton", x, y, button, down)
}

func (f *Fake) ControlDownload(id uint32, action string) {
	f.record("ControlDownload", id, action)
}

func (f *Fake) DownloadImage(token, url string, favicon bool, maxSize int) {
	f.record("DownloadImage", token, url, favicon, maxSize)
}

func (f *Fake) RespondDialog(id uint64, accept bool, text string) {
	f.record("RespondDialog", id, accept, text)
}

func (f *Fake) RespondAuth(id uint64, user, password string, ok bool) {
	f.record("RespondAuth", id, user, password, ok)
}

func (f *Fake) RespondDownload(id uint32, path string) {
	f.record("RespondDownload", id, path)
}

func (f *Fake) RespondFileDialog(id uint64, paths []string) {
	f.record("RespondFileDialog", id, paths)
}

// Close records the call and reports OnClosed.
func (f *Fake) Close() {
	f.record("Close")
	f.mu.Lock()
	already := f.closed
	f.closed = true
	f.mu.Unlock()
	if !already && f.Handler != nil {
		f.Handler.OnClosed()
	}
}
