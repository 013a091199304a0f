// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package playwright

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	pw "github.com/playwright-community/playwright-go"

	"github.com/bureau-foundation/webhost/lib/codec"
	"github.com/bureau-foundation/webhost/lib/engine"
)

// queueSize bounds the pending operations of one page. Operations
// queued past it are dropped with a warning.
const queueSize = 1024

type browserConfig struct {
	settings engine.Settings
	handler  engine.Handler
	context  pw.BrowserContext
	page     pw.Page
	cdp      pw.CDPSession
	interval time.Duration
	logger   *slog.Logger
}

// browser is one page. Fields under "worker" are touched only by the
// worker goroutine.
type browser struct {
	config  browserConfig
	handler engine.Handler
	logger  *slog.Logger

	ops     chan func()
	quit    chan struct{}
	done    chan struct{}
	closing atomic.Bool
	wakeups chan struct{}

	mu         sync.Mutex
	dialogs    map[uint64]pw.Dialog
	downloads  map[uint32]pw.Download
	choosers   map[uint64]pw.FileChooser
	nextID     uint64
	nextDL     uint32
	headers    []compiledHeaders
	css        []compiledRule
	js         []compiledRule
	resourceRx *regexp.Regexp
	hidden     bool
	suspended  bool
	lastURL    string

	// worker
	capture *capturer
	mouseX  float64
	mouseY  float64
	routed  bool
}

type compiledRule struct {
	pattern *regexp.Regexp
	value   string
}

type compiledHeaders struct {
	pattern *regexp.Regexp
	headers [][2]string
}

func newBrowser(config browserConfig) *browser {
	return &browser{
		config:    config,
		handler:   config.handler,
		logger:    config.logger,
		ops:       make(chan func(), queueSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		wakeups:   make(chan struct{}, 1),
		dialogs:   make(map[uint64]pw.Dialog),
		downloads: make(map[uint32]pw.Download),
		choosers:  make(map[uint64]pw.FileChooser),
		lastURL:   config.settings.URL,
		capture:   newCapturer(),
	}
}

func (b *browser) start() {
	b.subscribe()
	settings := b.config.settings
	b.SetHeaders(settings.Headers)
	b.SetInjections(settings.InjectCSS, settings.InjectJS)
	b.SetResourceFilter(settings.ResourceFilter)
	for key, value := range settings.Options {
		b.SetOption(key, value)
	}
	if settings.BackgroundColor>>24 != 0xFF {
		b.enqueue("background", func() {
			b.devTools("Emulation.setDefaultBackgroundColorOverride", map[string]any{
				"color": map[string]any{
					"r": (settings.BackgroundColor >> 16) & 0xFF,
					"g": (settings.BackgroundColor >> 8) & 0xFF,
					"b": settings.BackgroundColor & 0xFF,
					"a": float64(settings.BackgroundColor>>24) / 255,
				},
			})
		})
	}
	switch {
	case settings.DevToolsFor != "":
		// Playwright cannot attach a DevTools front end to another
		// page.
		b.logger.Warn("devtools view unsupported", "inspected", settings.DevToolsFor)
		b.Navigate("about:blank#blocked")
	case settings.URL != "":
		b.Navigate(settings.URL)
	}
	go b.run()
}

// run is the worker: queued operations in order, captures on the
// interval while visible.
func (b *browser) run() {
	defer close(b.done)
	ticker := time.NewTicker(b.config.interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.quit:
			b.config.page.Close()
			b.config.context.Close()
			return
		case op := <-b.ops:
			op()
		case <-ticker.C:
			b.captureIfVisible(false)
		case <-b.wakeups:
			b.captureIfVisible(true)
		}
	}
}

func (b *browser) enqueue(name string, op func()) {
	if b.closing.Load() {
		return
	}
	select {
	case b.ops <- op:
	default:
		b.logger.Warn("dropping browser operation, queue full", "operation", name)
	}
}

func (b *browser) captureIfVisible(force bool) {
	b.mu.Lock()
	skip := (b.hidden && !force) || b.suspended
	b.mu.Unlock()
	if skip {
		return
	}
	data, err := b.config.page.Screenshot()
	if err != nil {
		if !b.closing.Load() {
			b.logger.Debug("capturing page", "error", err)
		}
		return
	}
	pixels, width, height, changed, err := b.capture.decode(data)
	if err != nil {
		b.logger.Warn("decoding page capture", "error", err)
		return
	}
	if changed || force {
		b.handler.OnPaint(engine.SurfaceView, pixels, width, height, width*4)
	}
}

func (b *browser) subscribe() {
	page := b.config.page
	page.OnFrameNavigated(func(frame pw.Frame) {
		if frame != page.MainFrame() {
			return
		}
		url := frame.URL()
		b.mu.Lock()
		b.lastURL = url
		b.mu.Unlock()
		b.handler.OnAddressChange(url)
		b.handler.OnLoadStart(engine.Navigation{URL: url, Secure: strings.HasPrefix(url, "https:")})
		b.handler.OnLoadingState(engine.LoadingState{Loading: true, HasDocument: true})
		b.handler.OnLoadingProgress(0.1)
	})
	page.OnDOMContentLoaded(func(pw.Page) {
		b.handler.OnLoadingProgress(0.5)
		b.enqueue("inject", b.applyInjections)
		b.enqueue("title", func() {
			if title, err := page.Title(); err == nil {
				b.handler.OnTitleChange(title)
			}
		})
	})
	page.OnLoad(func(pw.Page) {
		url := page.URL()
		b.handler.OnLoadingProgress(1)
		b.enqueue("load-state", func() { b.reportLoaded(url) })
	})
	page.OnRequestFailed(func(request pw.Request) {
		if !request.IsNavigationRequest() || request.Frame() != page.MainFrame() {
			return
		}
		text := "failed"
		if failure := request.Failure(); failure != nil {
			text = failure.Error()
		}
		b.handler.OnLoadFailed(engine.LoadFailure{URL: request.URL(), Code: -2, Text: text})
	})
	page.OnRequest(func(request pw.Request) {
		b.mu.Lock()
		filter := b.resourceRx
		b.mu.Unlock()
		if filter != nil && filter.MatchString(request.URL()) {
			b.handler.OnResourceLoaded(request.URL())
		}
	})
	page.OnCrash(func(pw.Page) {
		b.handler.OnTerminated("crashed")
	})
	page.OnClose(func(pw.Page) {
		b.handler.OnClosed()
	})
	page.OnDialog(func(dialog pw.Dialog) {
		b.mu.Lock()
		b.nextID++
		id := b.nextID
		b.dialogs[id] = dialog
		b.mu.Unlock()
		kind := dialog.Type()
		if kind == "beforeunload" {
			kind = "beforeUnload"
		}
		b.handler.OnDialog(engine.Dialog{
			ID:            id,
			Type:          kind,
			Message:       dialog.Message(),
			OriginURL:     page.URL(),
			DefaultPrompt: dialog.DefaultValue(),
		})
	})
	page.OnDownload(func(download pw.Download) {
		b.mu.Lock()
		b.nextDL++
		id := b.nextDL
		b.downloads[id] = download
		b.mu.Unlock()
		b.handler.OnDownload(engine.DownloadRequest{
			ID:            id,
			URL:           download.URL(),
			SuggestedName: download.SuggestedFilename(),
		})
	})
	page.OnFileChooser(func(chooser pw.FileChooser) {
		b.mu.Lock()
		b.nextID++
		id := b.nextID
		b.choosers[id] = chooser
		b.mu.Unlock()
		kind := "open"
		if chooser.IsMultiple() {
			kind = "openMultiple"
		}
		b.handler.OnFileDialog(engine.FileDialog{ID: id, Type: kind})
	})
	page.OnPopup(func(popup pw.Page) {
		b.handler.OnPopupRequest(engine.PopupRequest{
			OriginURL:   page.URL(),
			TargetURL:   popup.URL(),
			Disposition: "newPopup",
		})
		popup.Close()
	})
	page.OnConsole(func(message pw.ConsoleMessage) {
		const prefix = "__webhost_data:"
		if text := message.Text(); strings.HasPrefix(text, prefix) {
			b.handler.OnDataFromScript(strings.TrimPrefix(text, prefix))
		}
	})
}

func (b *browser) reportLoaded(url string) {
	page := b.config.page
	state := engine.LoadingState{HasDocument: true}
	if length, err := page.Evaluate("history.length"); err == nil {
		state.CanGoBack = toFloat32(length) > 1
	}
	b.handler.OnLoadingState(state)
	b.handler.OnLoadEnd(engine.Navigation{URL: url, Secure: strings.HasPrefix(url, "https:"), Status: 200})
	b.reportScroll()
}

func (b *browser) reportScroll() {
	position, err := b.config.page.Evaluate("[window.scrollX, window.scrollY]")
	if err != nil {
		return
	}
	if pair, ok := position.([]any); ok && len(pair) == 2 {
		b.handler.OnScroll(toFloat32(pair[0]), toFloat32(pair[1]))
	}
}

func toFloat32(value any) float32 {
	switch v := value.(type) {
	case int:
		return float32(v)
	case float64:
		return float32(v)
	default:
		return 0
	}
}

func (b *browser) applyInjections() {
	page := b.config.page
	url := page.URL()
	b.mu.Lock()
	css := append([]compiledRule(nil), b.css...)
	js := append([]compiledRule(nil), b.js...)
	b.mu.Unlock()
	for _, rule := range css {
		if rule.pattern.MatchString(url) {
			if _, err := page.AddStyleTag(pw.PageAddStyleTagOptions{Content: pw.String(rule.value)}); err != nil {
				b.logger.Debug("injecting css", "error", err)
			}
		}
	}
	for _, rule := range js {
		if rule.pattern.MatchString(url) {
			if _, err := page.Evaluate(rule.value); err != nil {
				b.logger.Debug("injecting script", "error", err)
			}
		}
	}
}

func (b *browser) devTools(method string, params map[string]any) {
	if b.config.cdp == nil {
		return
	}
	if _, err := b.config.cdp.Send(method, params); err != nil {
		b.logger.Debug("devtools message failed", "method", method, "error", err)
	}
}

func (b *browser) evaluate(name, script string, arg any) {
	b.enqueue(name, func() {
		if _, err := b.config.page.Evaluate(script, arg); err != nil {
			b.logger.Debug("script failed", "operation", name, "error", err)
		}
	})
}

func (b *browser) reply(token string, value any) {
	data, err := codec.Marshal(value)
	if err != nil {
		b.logger.Warn("encoding reply", "token", token, "error", err)
		data = nil
	}
	b.handler.OnReply(token, data)
}

func compile(pattern string) *regexp.Regexp {
	if pattern == "" {
		return regexp.MustCompile("")
	}
	compiled, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		// Never matches.
		return regexp.MustCompile(`^\b$`)
	}
	return compiled
}

func (b *browser) Navigate(url string) {
	b.enqueue("navigate", func() {
		if _, err := b.config.page.Goto(url); err != nil && !b.closing.Load() {
			b.logger.Debug("navigation ended with error", "url", url, "error", err)
		}
	})
}

func (b *browser) GoBack() {
	b.enqueue("back", func() { b.config.page.GoBack() })
}

func (b *browser) GoForward() {
	b.enqueue("forward", func() { b.config.page.GoForward() })
}

func (b *browser) Reload(ignoreCache bool) {
	b.enqueue("reload", func() {
		if ignoreCache {
			b.devTools("Network.setCacheDisabled", map[string]any{"cacheDisabled": true})
			defer b.devTools("Network.setCacheDisabled", map[string]any{"cacheDisabled": false})
		}
		b.config.page.Reload()
	})
}

func (b *browser) Stop() {
	b.enqueue("stop", func() { b.devTools("Page.stopLoading", nil) })
}

func (b *browser) SetZoom(level float64) {
	b.enqueue("zoom", func() {
		b.devTools("Emulation.setPageScaleFactor", map[string]any{"pageScaleFactor": math.Pow(1.2, level)})
	})
}

func (b *browser) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	b.enqueue("resize", func() {
		if err := b.config.page.SetViewportSize(width, height); err != nil {
			b.logger.Warn("resizing viewport", "width", width, "height", height, "error", err)
		}
	})
}

func (b *browser) SetFocus(focused bool) {
	b.enqueue("focus", func() {
		b.devTools("Emulation.setFocusEmulationEnabled", map[string]any{"enabled": focused})
	})
}

func (b *browser) SetHidden(hidden bool) {
	b.mu.Lock()
	b.hidden = hidden
	b.mu.Unlock()
}

func (b *browser) MouseMove(x, y int, leave bool) {
	if leave {
		return
	}
	b.enqueue("mouse-move", func() {
		b.mouseX, b.mouseY = float64(x), float64(y)
		b.config.page.Mouse().Move(b.mouseX, b.mouseY)
	})
}

func (b *browser) MouseWheel(x, y, delta int) {
	b.enqueue("wheel", func() {
		b.config.page.Mouse().Move(float64(x), float64(y))
		b.config.page.Mouse().Wheel(0, float64(-delta))
		b.reportScroll()
	})
}

func (b *browser) MouseButton(x, y int, button engine.MouseButton, down bool) {
	b.enqueue("mouse-button", func() {
		mouse := b.config.page.Mouse()
		mouse.Move(float64(x), float64(y))
		which := pw.MouseButtonLeft
		switch button {
		case engine.ButtonMiddle:
			which = pw.MouseButtonMiddle
		case engine.ButtonRight:
			which = pw.MouseButtonRight
		}
		if down {
			mouse.Down(pw.MouseDownOptions{Button: which})
		} else {
			mouse.Up(pw.MouseUpOptions{Button: which})
		}
	})
}

func (b *browser) Touch(touch engine.Touch) {
	if touch.Phase != engine.TouchPressed {
		return
	}
	b.enqueue("touch", func() {
		b.config.page.Touchscreen().Tap(int(touch.X), int(touch.Y))
	})
}

func (b *browser) Key(event engine.KeyEvent) {
	name, ok := keyName(event.Code)
	if !ok {
		return
	}
	b.enqueue("key", func() {
		keyboard := b.config.page.Keyboard()
		if event.Down {
			keyboard.Down(name)
		} else {
			keyboard.Up(name)
		}
	})
}

func (b *browser) InsertText(text string) {
	b.enqueue("insert-text", func() { b.config.page.Keyboard().InsertText(text) })
}

func (b *browser) CaptureLost() {
	b.enqueue("capture-lost", func() {
		for _, button := range []*pw.MouseButton{pw.MouseButtonLeft, pw.MouseButtonMiddle, pw.MouseButtonRight} {
			b.config.page.Mouse().Up(pw.MouseUpOptions{Button: button})
		}
	})
}

var editScripts = map[string]string{
	"undo":           "document.execCommand('undo')",
	"redo":           "document.execCommand('redo')",
	"cut":            "document.execCommand('cut')",
	"copy":           "document.execCommand('copy')",
	"paste":          "document.execCommand('paste')",
	"delete":         "document.execCommand('delete')",
	"selectAll":      "document.execCommand('selectAll')",
	"print":          "window.print()",
	"exitFullscreen": "document.fullscreenElement && document.exitFullscreen()",
}

func (b *browser) EditCommand(name string) {
	script, ok := editScripts[name]
	if !ok {
		return
	}
	b.evaluate("edit-"+name, script, nil)
}

func (b *browser) Find(query engine.FindQuery) {
	b.enqueue("find", func() {
		if query.Text == "" {
			b.config.page.Evaluate("window.getSelection().removeAllRanges()")
			return
		}
		found, err := b.config.page.Evaluate(
			"([text, matchCase, backwards]) => window.find(text, matchCase, backwards, true)",
			[]any{query.Text, query.MatchCase, !query.Forward})
		if err != nil {
			return
		}
		count := 0
		if hit, _ := found.(bool); hit {
			count = 1
		}
		b.handler.OnFoundResult(engine.FoundResult{Identifier: 1, Index: count, Count: count, Final: true})
	})
}

func (b *browser) Execute(script string) {
	b.evaluate("execute", script, nil)
}

func (b *browser) Scroll(x, y int, absolute bool) {
	b.enqueue("scroll", func() {
		script := "([x, y]) => window.scrollBy(x, y)"
		if absolute {
			script = "([x, y]) => window.scrollTo(x, y)"
		}
		b.config.page.Evaluate(script, []any{x, y})
		b.reportScroll()
	})
}

func (b *browser) SetMuted(muted bool) {
	b.evaluate("mute", "(muted) => document.querySelectorAll('audio,video').forEach(m => m.muted = muted)", muted)
}

func (b *browser) SetColorScheme(scheme string) {
	value := scheme
	switch scheme {
	case "dark-auto", "dark-forced":
		value = "dark"
	}
	b.enqueue("color-scheme", func() {
		b.devTools("Emulation.setEmulatedMedia", map[string]any{
			"features": []any{map[string]any{"name": "prefers-color-scheme", "value": value}},
		})
		b.devTools("Emulation.setAutoDarkModeOverride", map[string]any{"enabled": scheme == "dark-auto"})
	})
}

func (b *browser) SetOption(key, value string) {
	switch key {
	case "scaleFactor":
		b.enqueue("scale-factor", func() {
			b.devTools("Emulation.setDeviceMetricsOverride", map[string]any{
				"width": 0, "height": 0, "mobile": false,
				"deviceScaleFactor": parseFloat(value, 1),
			})
		})
	case "invalidateView":
		b.BeginFrame()
	default:
		b.logger.Debug("engine option not supported", "key", key)
	}
}

func parseFloat(value string, fallback float64) float64 {
	var parsed float64
	if _, err := fmt.Sscan(value, &parsed); err != nil {
		return fallback
	}
	return parsed
}

func (b *browser) SetHeaders(rules []engine.HeaderRule) {
	compiled := make([]compiledHeaders, 0, len(rules))
	for _, rule := range rules {
		compiled = append(compiled, compiledHeaders{pattern: compile(rule.Pattern), headers: rule.Headers})
	}
	b.mu.Lock()
	b.headers = compiled
	b.mu.Unlock()
	if len(compiled) == 0 {
		return
	}
	b.enqueue("route", func() {
		if b.routed {
			return
		}
		b.routed = true
		err := b.config.page.Route("**/*", func(route pw.Route) {
			request := route.Request()
			headers := request.Headers()
			b.mu.Lock()
			for _, rule := range b.headers {
				if rule.pattern.MatchString(request.URL()) {
					for _, header := range rule.headers {
						headers[header[0]] = header[1]
					}
				}
			}
			b.mu.Unlock()
			route.Continue(pw.RouteContinueOptions{Headers: headers})
		})
		if err != nil {
			b.logger.Warn("installing header route", "error", err)
		}
	})
}

func (b *browser) SetInjections(css, js []engine.Rule) {
	compiledCSS := make([]compiledRule, 0, len(css))
	for _, rule := range css {
		compiledCSS = append(compiledCSS, compiledRule{pattern: compile(rule.Pattern), value: rule.Value})
	}
	compiledJS := make([]compiledRule, 0, len(js))
	for _, rule := range js {
		compiledJS = append(compiledJS, compiledRule{pattern: compile(rule.Pattern), value: rule.Value})
	}
	b.mu.Lock()
	b.css, b.js = compiledCSS, compiledJS
	b.mu.Unlock()
}

func (b *browser) SetResourceFilter(pattern string) {
	var filter *regexp.Regexp
	if pattern != "" {
		filter = compile(pattern)
	}
	b.mu.Lock()
	b.resourceRx = filter
	b.mu.Unlock()
}

func (b *browser) DevToolsMessage(method, params string) {
	b.enqueue("devtools", func() {
		var decoded map[string]any
		if params != "" {
			if err := json.Unmarshal([]byte(params), &decoded); err != nil {
				b.logger.Warn("devtools params are not a JSON object", "method", method, "error", err)
				return
			}
		}
		b.devTools(method, decoded)
	})
}

func (b *browser) Send(channel, data, extra string) {
	b.evaluate("send", `([channel, data, extra]) => window.dispatchEvent(
		new CustomEvent('webhost:' + channel, {detail: {data, extra}}))`, []any{channel, data, extra})
}

func (b *browser) FillForm(fields []string) {
	b.evaluate("fill-form", `(fields) => {
		for (let i = 0; i + 1 < fields.length; i += 2) {
			document.querySelectorAll('[name="' + CSS.escape(fields[i]) + '"]').forEach(e => e.value = fields[i + 1]);
		}
	}`, fields)
}

func (b *browser) StartDownload(url string) {
	b.evaluate("download", `(url) => {
		const link = document.createElement('a');
		link.href = url;
		link.download = '';
		document.body.appendChild(link);
		link.click();
		link.remove();
	}`, url)
}

func (b *browser) ControlDownload(id uint32, action string) {
	b.mu.Lock()
	download, ok := b.downloads[id]
	if ok && action == "cancel" {
		delete(b.downloads, id)
	}
	b.mu.Unlock()
	if !ok || action != "cancel" {
		return
	}
	b.enqueue("cancel-download", func() {
		download.Cancel()
		b.handler.OnDownloadUpdate(engine.DownloadUpdate{ID: id, Canceled: true})
	})
}

func (b *browser) Source(token string, text bool) {
	b.enqueue("source", func() {
		var content string
		var err error
		if text {
			content, err = b.config.page.InnerText("body")
		} else {
			content, err = b.config.page.Content()
		}
		if err != nil {
			content = ""
		}
		b.handler.OnReply(token, []byte(content))
	})
}

// HistoryEntry is one entry of a history reply.
type HistoryEntry struct {
	Current    bool   `cbor:"current"`
	DisplayURL string `cbor:"displayURL"`
	Title      string `cbor:"title"`
}

func (b *browser) History(token string, forward bool) {
	b.enqueue("history", func() {
		title, _ := b.config.page.Title()
		entries := []HistoryEntry{{Current: true, DisplayURL: b.config.page.URL(), Title: title}}
		b.reply(token, entries)
	})
}

// SecurityState is the ssl reply.
type SecurityState struct {
	Secure bool `cbor:"secure"`
}

func (b *browser) Security(token string) {
	b.enqueue("security", func() {
		b.reply(token, SecurityState{Secure: strings.HasPrefix(b.config.page.URL(), "https:")})
	})
}

// CookieEntry is one cookie of a cookies reply.
type CookieEntry struct {
	Name     string  `cbor:"name"`
	Value    string  `cbor:"value"`
	Domain   string  `cbor:"domain"`
	Path     string  `cbor:"path"`
	Secure   bool    `cbor:"secure"`
	HTTPOnly bool    `cbor:"HTTPOnly"`
	Expires  float64 `cbor:"expirationTime,omitempty"`
}

func (b *browser) Cookies(token, url string) {
	b.enqueue("cookies", func() {
		var urls []string
		if url != "" {
			urls = append(urls, url)
		}
		cookies, err := b.config.context.Cookies(urls...)
		if err != nil {
			b.handler.OnReply(token, nil)
			return
		}
		entries := make([]CookieEntry, 0, len(cookies))
		for _, cookie := range cookies {
			entries = append(entries, CookieEntry{
				Name:     cookie.Name,
				Value:    cookie.Value,
				Domain:   cookie.Domain,
				Path:     cookie.Path,
				Secure:   cookie.Secure,
				HTTPOnly: cookie.HttpOnly,
				Expires:  cookie.Expires,
			})
		}
		b.reply(token, entries)
	})
}

func (b *browser) DownloadImage(token, url string, favicon bool, maxSize int) {
	b.enqueue("download-image", func() {
		data, err := b.config.page.Evaluate(`async (url) => {
			const response = await fetch(url);
			if (!response.ok) return '';
			const bytes = new Uint8Array(await response.arrayBuffer());
			let binary = '';
			for (const b of bytes) binary += String.fromCharCode(b);
			return btoa(binary);
		}`, url)
		if err != nil {
			b.handler.OnReply(token, nil)
			return
		}
		encoded, _ := data.(string)
		b.handler.OnReply(token, decodeImage(encoded, maxSize))
	})
}

func (b *browser) WriteCookie(url string, cookie engine.Cookie) {
	b.enqueue("write-cookie", func() {
		optional := pw.OptionalCookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Secure:   pw.Bool(cookie.Secure),
			HttpOnly: pw.Bool(cookie.HTTPOnly),
		}
		if cookie.Domain != "" {
			optional.Domain = pw.String(cookie.Domain)
			optional.Path = pw.String(cookie.Path)
		} else {
			optional.URL = pw.String(url)
		}
		if cookie.Expires != 0 {
			optional.Expires = pw.Float(float64(cookie.Expires))
		}
		if err := b.config.context.AddCookies([]pw.OptionalCookie{optional}); err != nil {
			b.logger.Warn("writing cookie", "name", cookie.Name, "error", err)
		}
	})
}

func (b *browser) DeleteCookies(url, name string) {
	b.enqueue("delete-cookies", func() {
		context := b.config.context
		all, err := context.Cookies()
		if err != nil {
			return
		}
		var matching []pw.Cookie
		if url != "" {
			matching, _ = context.Cookies(url)
		} else {
			matching = all
		}
		drop := make(map[[3]string]bool)
		for _, cookie := range matching {
			if name == "" || cookie.Name == name {
				drop[[3]string{cookie.Name, cookie.Domain, cookie.Path}] = true
			}
		}
		if len(drop) == 0 {
			return
		}
		keep := make([]pw.OptionalCookie, 0, len(all))
		for _, cookie := range all {
			if drop[[3]string{cookie.Name, cookie.Domain, cookie.Path}] {
				continue
			}
			keep = append(keep, pw.OptionalCookie{
				Name:     cookie.Name,
				Value:    cookie.Value,
				Domain:   pw.String(cookie.Domain),
				Path:     pw.String(cookie.Path),
				Expires:  pw.Float(cookie.Expires),
				HttpOnly: pw.Bool(cookie.HttpOnly),
				Secure:   pw.Bool(cookie.Secure),
			})
		}
		if err := context.ClearCookies(); err != nil {
			b.logger.Warn("clearing cookies", "error", err)
			return
		}
		if len(keep) > 0 {
			context.AddCookies(keep)
		}
	})
}

func (b *browser) RespondDialog(id uint64, accept bool, text string) {
	b.mu.Lock()
	dialog, ok := b.dialogs[id]
	delete(b.dialogs, id)
	b.mu.Unlock()
	if !ok {
		return
	}
	go func() {
		if accept {
			dialog.Accept(text)
		} else {
			dialog.Dismiss()
		}
	}()
}

func (b *browser) RespondAuth(id uint64, user, password string, ok bool) {
	b.logger.Debug("ignoring authentication response", "id", id)
}

func (b *browser) RespondDownload(id uint32, path string) {
	b.mu.Lock()
	download, ok := b.downloads[id]
	if path == "" {
		delete(b.downloads, id)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	go func() {
		if path == "" {
			download.Cancel()
			b.handler.OnDownloadUpdate(engine.DownloadUpdate{ID: id, Canceled: true})
			return
		}
		b.handler.OnDownloadUpdate(engine.DownloadUpdate{ID: id, InProgress: true})
		err := download.SaveAs(path)
		b.mu.Lock()
		delete(b.downloads, id)
		b.mu.Unlock()
		b.handler.OnDownloadUpdate(engine.DownloadUpdate{ID: id, Complete: err == nil, Canceled: err != nil})
	}()
}

func (b *browser) RespondFileDialog(id uint64, paths []string) {
	b.mu.Lock()
	chooser, ok := b.choosers[id]
	delete(b.choosers, id)
	b.mu.Unlock()
	if !ok || len(paths) == 0 {
		return
	}
	b.enqueue("file-chooser", func() {
		if err := chooser.SetFiles(paths); err != nil {
			b.logger.Warn("setting chosen files", "error", err)
		}
	})
}

func (b *browser) BeginFrame() {
	select {
	case b.wakeups <- struct{}{}:
	default:
	}
}

func (b *browser) Suspend() {
	b.mu.Lock()
	b.suspended = true
	b.mu.Unlock()
	b.enqueue("suspend", func() { b.config.page.Goto("about:blank") })
}

func (b *browser) Resume() {
	b.mu.Lock()
	b.suspended = false
	url := b.lastURL
	b.mu.Unlock()
	if url != "" && url != "about:blank" {
		b.Navigate(url)
	}
}

// Close stops the worker and closes the page and its context. OnClosed
// follows from the page close event.
func (b *browser) Close() {
	if b.closing.Swap(true) {
		return
	}
	close(b.quit)
}
