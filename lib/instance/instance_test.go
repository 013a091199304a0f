// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instance

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/bureau-foundation/webhost/lib/clock"
	"github.com/bureau-foundation/webhost/lib/codec"
	"github.com/bureau-foundation/webhost/lib/command"
	"github.com/bureau-foundation/webhost/lib/composition"
	"github.com/bureau-foundation/webhost/lib/engine"
	"github.com/bureau-foundation/webhost/lib/gpu"
	"github.com/bureau-foundation/webhost/lib/layout"
	"github.com/bureau-foundation/webhost/lib/process"
	"github.com/bureau-foundation/webhost/lib/shm"
	"github.com/bureau-foundation/webhost/lib/testutil"
)

type request struct {
	code    command.Code
	payload string
}

type harness struct {
	t         *testing.T
	namespace shm.Namespace
	device    *gpu.Device
	entry     layout.Entry
	clock     *clock.FakeClock
	factory   *engine.FakeFactory
	instance  *Instance
	browser   *engine.Fake
	exits     []process.ExitCode
}

type harnessOptions struct {
	limited bool
	config  string
	pending []request
}

func newHarness(t *testing.T, options harnessOptions) *harness {
	t.Helper()
	namespace := testutil.Namespace(t)
	device, err := gpu.NewDevice(gpu.Config{Namespace: namespace})
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	t.Cleanup(func() { device.Close() })

	segment, err := namespace.Create("inst", layout.EntrySize)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	entry, err := layout.NewEntry(segment.Bytes())
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	entry.SetSize(64, 32)
	entry.SetTouch(0, layout.Vec2{X: layout.NoTouch, Y: layout.NoTouch})
	entry.SetTouch(1, layout.Vec2{X: layout.NoTouch, Y: layout.NoTouch})
	copy(entry.Response(), options.config)
	writeRequests(t, entry, options.pending...)

	h := &harness{
		t:         t,
		namespace: namespace,
		device:    device,
		entry:     entry,
		clock:     clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		factory:   &engine.FakeFactory{},
	}
	instance, err := New(context.Background(), Options{
		ID:        7,
		Limited:   options.limited,
		Segment:   segment,
		Namespace: namespace,
		Device:    device,
		Factory:   h.factory,
		Clock:     h.clock,
		Exit:      func(code process.ExitCode) { h.exits = append(h.exits, code) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { instance.Close() })
	h.instance = instance
	h.browser = h.factory.Browsers()[0]
	return h
}

func writeRequests(t *testing.T, entry layout.Entry, requests ...request) {
	t.Helper()
	if len(requests) == 0 {
		return
	}
	offset := 0
	for _, r := range requests {
		next, ok := command.PutRecord(entry.Commands(), offset, r.code, []byte(r.payload))
		if !ok {
			t.Fatalf("request %q does not fit", r.payload)
		}
		offset = next
	}
	entry.PublishCommands(uint32(len(requests)))
}

// send queues requests as a client would and runs one update.
func (h *harness) send(requests ...request) {
	h.t.Helper()
	writeRequests(h.t, h.entry, requests...)
	h.instance.Update()
}

// events drains the response buffer.
func (h *harness) events() []command.Record {
	h.t.Helper()
	count := h.entry.ResponseSet()
	if count == 0 {
		return nil
	}
	var records []command.Record
	reader := &command.Reader{Namespace: h.namespace, Instance: h.instance.Name()}
	err := reader.Decode(h.entry.Response(), count, func(record command.Record) {
		records = append(records, command.Record{Code: record.Code, Payload: append([]byte(nil), record.Payload...)})
	})
	if err != nil {
		h.t.Fatalf("Decode: %v", err)
	}
	h.entry.PublishResponse(0)
	return records
}

func codes(records []command.Record) []string {
	names := make([]string, len(records))
	for index, record := range records {
		names[index] = command.Events.Name(record.Code)
	}
	return names
}

func TestNavigateAndLoadEvents(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.send(request{command.RequestNavigate, "https://example.com/"})

	calls := h.browser.CallsTo("Navigate")
	if len(calls) != 1 || calls[0].Args[0] != "https://example.com/" {
		t.Fatalf("Navigate calls = %v", calls)
	}
	if h.entry.CommandsSet() != 0 {
		t.Errorf("commands_set = %d after update, want 0", h.entry.CommandsSet())
	}

	h.browser.Handler.OnLoadStart(engine.Navigation{URL: "https://example.com/", Secure: true, Status: 200})
	h.browser.Handler.OnLoadEnd(engine.Navigation{URL: "https://example.com/", Secure: true, Status: 200})
	h.instance.Update()

	records := h.events()
	want := []string{"url", "load_start", "load_end"}
	if got := codes(records); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if got := string(records[0].Payload); got != "https://example.com/" {
		t.Errorf("url payload = %q", got)
	}
	var navigation command.Navigation
	if err := codec.Unmarshal(records[2].Payload, &navigation); err != nil {
		t.Fatalf("Unmarshal load_end: %v", err)
	}
	if !navigation.Secure || navigation.Status != 200 {
		t.Errorf("load_end = %+v, want secure status 200", navigation)
	}
}

func TestRepeatedStateEventsAreDeduplicated(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.browser.Handler.OnTitleChange("One")
	h.browser.Handler.OnTitleChange("One")
	h.browser.Handler.OnLoadFailed(engine.LoadFailure{URL: "https://a/", Code: errAborted})
	h.instance.Update()
	if got := codes(h.events()); !reflect.DeepEqual(got, []string{"title"}) {
		t.Errorf("events = %v, want [title]", got)
	}
}

func TestLimitedInstanceIgnoresPrivilegedRequests(t *testing.T) {
	h := newHarness(t, harnessOptions{limited: true})
	h.send(
		request{command.RequestInjectJS, "*\x01alert(1)"},
		request{command.RequestExecute, "alert(1)"},
		request{command.RequestNavigate, "javascript:alert(1)"},
		request{command.RequestDevToolsMessage, "Runtime.evaluate\x01{}"},
		request{command.RequestDevToolsMessage, "Emulation.setTouchEmulationEnabled\x01{\"enabled\":true}"},
		request{command.RequestHTML, "5"},
		request{command.RequestCommand, "print"},
	)

	for _, method := range []string{"SetInjections", "Execute", "Navigate", "Source", "EditCommand"} {
		if calls := h.browser.CallsTo(method); len(calls) != 0 {
			t.Errorf("limited instance reached %s: %v", method, calls)
		}
	}
	devtools := h.browser.CallsTo("DevToolsMessage")
	if len(devtools) != 1 || devtools[0].Args[0] != "Emulation.setTouchEmulationEnabled" {
		t.Errorf("DevToolsMessage calls = %v, want only the emulation one", devtools)
	}

	h.instance.Update()
	records := h.events()
	if len(records) != 1 || records[0].Code != command.CodeReply || string(records[0].Payload) != "5\x01" {
		t.Errorf("events = %v, want one empty reply for token 5", records)
	}
}

func TestFullAccessInstanceRunsPrivilegedRequests(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.send(
		request{command.RequestExecute, "alert(1)"},
		request{command.RequestHTML, "5"},
		request{command.RequestInjectJS, "*\x01ok()\x01*.evil\x01</script>"},
	)
	if calls := h.browser.CallsTo("Execute"); len(calls) != 1 {
		t.Errorf("Execute calls = %v", calls)
	}
	if calls := h.browser.CallsTo("Source"); len(calls) != 1 || calls[0].Args[0] != "5" {
		t.Errorf("Source calls = %v", calls)
	}
	injections := h.browser.CallsTo("SetInjections")
	if len(injections) != 1 {
		t.Fatalf("SetInjections calls = %v", injections)
	}
	js := injections[0].Args[1].([]engine.Rule)
	if len(js) != 1 || js[0].Value != "ok()" {
		t.Errorf("injected scripts = %v, want only ok()", js)
	}
}

func TestConfigureRequestsApplyBeforeCreation(t *testing.T) {
	h := newHarness(t, harnessOptions{
		config: "UUID=42\nacceptLanguages=de-DE\n",
		pending: []request{
			{command.RequestNavigate, "https://start.example/"},
			{command.RequestInjectCSS, "*\x01body{}</STYLE>"},
			{command.RequestSetOption, "keepSuspendedTexture\x011"},
			{command.RequestZoom, "1.5"},
		},
	})

	settings := h.browser.Settings
	if settings.URL != "https://start.example/" {
		t.Errorf("initial URL = %q", settings.URL)
	}
	if len(settings.InjectCSS) != 1 || settings.InjectCSS[0].Value != "body{}?/STYLE>" {
		t.Errorf("InjectCSS = %v", settings.InjectCSS)
	}
	if settings.AcceptLanguages != "de-DE" {
		t.Errorf("AcceptLanguages = %q, want de-DE", settings.AcceptLanguages)
	}
	if h.instance.UUID() != 42 {
		t.Errorf("UUID = %d, want 42", h.instance.UUID())
	}
	if !h.instance.keepSuspendedTexture {
		t.Error("keepSuspendedTexture was not applied")
	}
	if got := h.entry.CommandsSet(); got != 1 {
		t.Fatalf("commands left for the first update = %d, want 1", got)
	}

	h.instance.Update()
	zoom := h.browser.CallsTo("SetZoom")
	if len(zoom) != 1 || zoom[0].Args[0] != 1.5 {
		t.Errorf("SetZoom calls = %v, want [1.5]", zoom)
	}
	if calls := h.browser.CallsTo("Navigate"); len(calls) != 0 {
		t.Errorf("configured navigation was dispatched again: %v", calls)
	}
}

func TestDevToolsForUnknownInstanceIsBlocked(t *testing.T) {
	h := newHarness(t, harnessOptions{config: "devTools=99\n"})
	if got := h.browser.Settings.URL; got != "about:blank#blocked" {
		t.Errorf("URL = %q, want about:blank#blocked", got)
	}
}

func TestCrashLoopExits(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	for crash := 1; crash <= 9; crash++ {
		h.browser.Handler.OnTerminated("crashed")
		h.instance.Update()
		h.clock.Advance(time.Second)
	}
	if want := []process.ExitCode{process.ExitCrashLoop}; !reflect.DeepEqual(h.exits, want) {
		t.Fatalf("exits = %v, want %v", h.exits, want)
	}
	if reloads := len(h.browser.CallsTo("Reload")); reloads != 8 {
		t.Errorf("reloads = %d, want 8", reloads)
	}
}

func TestCrashWindowResets(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	for crash := 0; crash < 20; crash++ {
		h.browser.Handler.OnTerminated("crashed")
		h.instance.Update()
		h.clock.Advance(10 * time.Second)
	}
	if len(h.exits) != 0 {
		t.Errorf("exits = %v, want none for spread out crashes", h.exits)
	}
}

func TestSuspendedCrashDropsFrames(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.browser.Handler.OnPaint(engine.SurfaceView, make([]byte, 64*32*4), 64, 32, 64*4)
	h.instance.Update()
	if h.entry.Handle() == 0 {
		t.Fatal("no frame exported")
	}

	h.send(request{command.RequestLifespan, "suspend"})
	h.browser.Handler.OnTerminated("killed")
	h.instance.Update()
	if h.entry.Handle() != 0 {
		t.Errorf("handle = %d after suspended crash, want 0", h.entry.Handle())
	}
	if reloads := h.browser.CallsTo("Reload"); len(reloads) != 0 {
		t.Errorf("suspended instance reloaded: %v", reloads)
	}
}

func TestSuspendedCompositedCrashKeepsRunning(t *testing.T) {
	h := newHarness(t, harnessOptions{config: "directRender=0\n"})
	h.browser.Handler.OnPaint(engine.SurfaceView, make([]byte, 64*32*4), 64, 32, 64*4)
	h.instance.Update()
	h.instance.Render()
	target := h.entry.Handle()
	if target == 0 {
		t.Fatal("no render target shared")
	}

	h.send(request{command.RequestLifespan, "suspend"})
	h.browser.Handler.OnTerminated("killed")
	h.instance.Update()
	if h.entry.Handle() != target {
		t.Errorf("handle = %d after suspended crash, want target %d", h.entry.Handle(), target)
	}
	if reloads := h.browser.CallsTo("Reload"); len(reloads) != 0 {
		t.Errorf("suspended instance reloaded: %v", reloads)
	}
	if len(h.exits) != 0 {
		t.Errorf("exits = %v, want none", h.exits)
	}
}

func TestCompositedPopupHiddenUntilSized(t *testing.T) {
	h := newHarness(t, harnessOptions{config: "directRender=0\n"})
	h.browser.Handler.OnPopupShow(true)
	h.browser.Handler.OnPopupSize(engine.Rectangle{X: 16, Y: 8, Width: 32, Height: 16})
	h.instance.Update()
	if !h.instance.popupLayer.Active() {
		t.Fatal("sized popup is not drawn")
	}

	// Showing the popup again drops the old rectangle.
	h.browser.Handler.OnPopupShow(true)
	h.instance.Update()
	if h.instance.popupLayer.Active() {
		x, y, width, height := h.instance.popupLayer.Bounds()
		t.Errorf("popup bounds = (%v,%v,%v,%v) before a new size, want hidden", x, y, width, height)
	}
	h.browser.Handler.OnPopupSize(engine.Rectangle{X: 0, Y: 0, Width: 8, Height: 8})
	h.instance.Update()
	if !h.instance.popupLayer.Active() {
		t.Error("popup not drawn after its new size")
	}
}

func TestPassthroughExportsFrames(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	if !h.instance.Passthrough() {
		t.Fatal("passthrough is not the default")
	}
	h.browser.Handler.OnPaint(engine.SurfaceView, make([]byte, 64*32*4), 64, 32, 64*4)
	h.instance.Update()
	if got := h.entry.Handle(); got != 1 {
		t.Fatalf("handle = %d, want 1", got)
	}
	if !h.namespace.Exists("inst.T.1") {
		t.Error("export inst.T.1 is missing")
	}

	h.browser.Handler.OnPopupShow(true)
	h.browser.Handler.OnPopupSize(engine.Rectangle{X: 16, Y: 8, Width: 32, Height: 16})
	popup := make([]byte, 32*16*4)
	popup[0] = 1
	h.browser.Handler.OnPaint(engine.SurfacePopup, popup, 32, 16, 32*4)
	h.instance.Update()
	h.instance.Update()

	if got := h.entry.PopupHandle(); got != 2 {
		t.Errorf("popup handle = %d, want 2", got)
	}
	want := composition.PopupArea(16, 8, 32, 16, 64, 32)
	if got := h.entry.PopupDimensions(); got != want {
		t.Errorf("popup dimensions = %v, want %v", got, want)
	}
	if h.instance.Render() {
		t.Error("passthrough instance rendered")
	}
}

func TestCompositedRenderSharesTarget(t *testing.T) {
	h := newHarness(t, harnessOptions{config: "directRender=0\n"})
	pixels := make([]byte, 64*32*4)
	for offset := 0; offset < len(pixels); offset += 4 {
		pixels[offset+2], pixels[offset+3] = 0xFF, 0xFF
	}
	h.browser.Handler.OnPaint(engine.SurfaceView, pixels, 64, 32, 64*4)
	h.instance.Update()
	if !h.instance.Render() {
		t.Fatal("Render = false, want true")
	}
	handle := h.entry.Handle()
	if handle == 0 {
		t.Fatal("target handle was not published")
	}
	target, err := h.device.OpenShared(gpu.Handle(handle))
	if err != nil {
		t.Fatalf("OpenShared: %v", err)
	}
	defer target.Close()
	if got := target.Pixels()[2]; got != 0xFF {
		t.Errorf("red channel = %d, want 255", got)
	}

	h.entry.SetSize(32, 16)
	h.instance.Update()
	h.instance.Render()
	if h.entry.Handle() == handle {
		t.Error("target was not recreated after resize")
	}
	if resizes := h.browser.CallsTo("Resize"); len(resizes) == 0 {
		t.Error("browser was not resized")
	}
}

func TestReplyResolvesDialogOnce(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.browser.Handler.OnDialog(engine.Dialog{ID: 42, Type: "confirm", Message: "Leave?"})
	h.instance.Update()

	records := h.events()
	if len(records) != 1 || records[0].Code != command.EventJSDialog {
		t.Fatalf("events = %v, want one jsdialog", codes(records))
	}
	var dialog command.Dialog
	if err := codec.Unmarshal(records[0].Payload, &dialog); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	reply := string(command.ReplyPayload(dialog.ReplyID, "1\x01ok"))
	h.send(request{command.CodeReply, reply})
	h.send(request{command.CodeReply, reply})

	calls := h.browser.CallsTo("RespondDialog")
	if len(calls) != 1 {
		t.Fatalf("RespondDialog calls = %v, want 1", calls)
	}
	if want := []any{uint64(42), true, "ok"}; !reflect.DeepEqual(calls[0].Args, want) {
		t.Errorf("RespondDialog args = %v, want %v", calls[0].Args, want)
	}
}

func TestInputIsDiffed(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.entry.SetMouse(10, 20)
	h.entry.SetMouseFlags(layout.MouseLeft)
	h.entry.SetTouch(0, layout.Vec2{X: 5, Y: 6})
	h.instance.Update()
	h.instance.Update()

	if calls := h.browser.CallsTo("MouseMove"); len(calls) != 1 || !reflect.DeepEqual(calls[0].Args, []any{10, 20, false}) {
		t.Errorf("MouseMove calls = %v", calls)
	}
	if calls := h.browser.CallsTo("MouseButton"); len(calls) != 1 || !reflect.DeepEqual(calls[0].Args, []any{10, 20, engine.ButtonLeft, true}) {
		t.Errorf("MouseButton calls = %v", calls)
	}

	h.entry.SetTouch(0, layout.Vec2{X: -layout.NoTouch, Y: 0})
	h.instance.Update()
	touches := h.browser.CallsTo("Touch")
	if len(touches) != 2 {
		t.Fatalf("Touch calls = %v, want press and cancel", touches)
	}
	if phase := touches[0].Args[0].(engine.Touch).Phase; phase != engine.TouchPressed {
		t.Errorf("first touch phase = %v, want pressed", phase)
	}
	if phase := touches[1].Args[0].(engine.Touch).Phase; phase != engine.TouchCancelled {
		t.Errorf("second touch phase = %v, want cancelled", phase)
	}
}

func TestHiddenAfterVisibilityLapses(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	for tick := 0; tick < visibleTicks+5; tick++ {
		h.instance.Update()
	}
	hidden := h.browser.CallsTo("SetHidden")
	if len(hidden) != 1 || hidden[0].Args[0] != true {
		t.Fatalf("SetHidden calls = %v, want [true]", hidden)
	}

	h.entry.SetFrontendFlags(layout.FrontendVisible)
	h.instance.Update()
	hidden = h.browser.CallsTo("SetHidden")
	if len(hidden) != 2 || hidden[1].Args[0] != false {
		t.Errorf("SetHidden calls = %v, want a false after becoming visible", hidden)
	}
}

func TestPostponedScrollWaitsForLoad(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.entry.SetFrontendFlags(layout.FrontendVisible)
	h.send(request{command.RequestScroll, "1\x010\x01300"})
	if calls := h.browser.CallsTo("Scroll"); len(calls) != 0 {
		t.Fatalf("scroll ran before the page loaded: %v", calls)
	}
	h.browser.Handler.OnTitleChange("Loaded")
	h.browser.Handler.OnLoadingProgress(1)
	h.instance.Update()
	calls := h.browser.CallsTo("Scroll")
	if len(calls) != 1 || !reflect.DeepEqual(calls[0].Args, []any{0, 300, true}) {
		t.Errorf("Scroll calls = %v, want [0 300 true]", calls)
	}
}

func TestCloseReportsCloseEvent(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.send(request{command.RequestLifespan, "close"})
	h.instance.Update()
	if got := codes(h.events()); !reflect.DeepEqual(got, []string{"close"}) {
		t.Errorf("events = %v, want [close]", got)
	}
}

func TestParseConfig(t *testing.T) {
	config := ParseConfig([]byte("UUID=7\ndirectRender=0\nredirectAudio=1\nbackgroundColor=0xff000000\ncompressLarge=bogus\nwebGL=0\n"))
	if config.UUID != 7 || config.Passthrough || !config.RedirectAudio {
		t.Errorf("config = %+v", config)
	}
	if config.BackgroundColor != 0xff000000 {
		t.Errorf("BackgroundColor = %#x", config.BackgroundColor)
	}
	if enabled, ok := config.Features["webGL"]; !ok || enabled {
		t.Errorf("webGL feature = %v, %v; want false, true", enabled, ok)
	}
	if len(config.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one for compressLarge", config.Warnings)
	}
}

func TestDataKeyStaysUnderDataDirectory(t *testing.T) {
	defaults := Defaults{DataDirectory: "/srv/profiles"}
	tests := []struct {
		key  string
		want string
	}{
		{"shop", "/srv/profiles/shop"},
		{"../escape", ""},
		{"/etc", ""},
		{"a/b", ""},
		{`a\b`, ""},
		{"..", ""},
		{".", ""},
	}
	for _, test := range tests {
		config := ParseConfig([]byte("dataKey=" + test.key + "\n"))
		if test.want == "" {
			if config.HasDataKey || len(config.Warnings) != 1 {
				t.Errorf("dataKey %q: HasDataKey = %v, warnings = %v; want rejected", test.key, config.HasDataKey, config.Warnings)
			}
		}
		settings := (&Instance{config: config}).initialSettings(defaults)
		want := test.want
		if want == "" {
			want = defaults.DataDirectory
		}
		if settings.DataDirectory != want {
			t.Errorf("dataKey %q: DataDirectory = %q, want %q", test.key, settings.DataDirectory, want)
		}
	}
}
