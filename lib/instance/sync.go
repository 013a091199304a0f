// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instance

import (
	"image/color"
	"math"
	"time"

	"github.com/bureau-foundation/webhost/lib/composition"
	"github.com/bureau-foundation/webhost/lib/engine"
	"github.com/bureau-foundation/webhost/lib/gpu"
	"github.com/bureau-foundation/webhost/lib/layout"
	"github.com/bureau-foundation/webhost/lib/process"
)

// Update runs once per tick on the scheduler goroutine: it follows
// size changes and exchanges state with the client through the entry.
func (i *Instance) Update() {
	width, height := i.entry.Width(), i.entry.Height()
	if width != i.width || height != i.height {
		i.width, i.height = width, height
		if i.composition != nil {
			i.composition.Resize(int(width), int(height))
		} else {
			i.browser.Resize(int(width), int(height))
		}
	}
	i.sync()
}

func (i *Instance) sync() {
	entry := i.entry
	now := i.clock.Now()
	entry.SetAliveTime(uint64(now.Unix()))

	if i.config.Passthrough {
		i.exportFrames()
		entry.SetHandle(i.viewRing.Current())
		if i.popupActive {
			entry.SetPopupHandle(i.popupRing.Current())
			entry.SetPopupDimensions(i.popupArea)
		} else {
			entry.SetPopupHandle(0)
			entry.SetPopupDimensions([4]float32{})
		}
	}

	if count := entry.CommandsSet(); count > 0 {
		err := i.reader.Decode(entry.Commands(), count, i.dispatch)
		if err != nil {
			i.logger.Warn("reading commands", "error", err)
		}
		entry.PublishCommands(0)
	}

	frontend := entry.FrontendFlags()
	if frontend&layout.FrontendVisible != 0 || entry.NeedsNextFrame() > 0 {
		i.visibleCounter = visibleTicks
	} else if i.visibleCounter > 0 {
		i.visibleCounter--
	}

	focused := frontend&layout.FrontendFocused != 0
	if focused != i.lastFocus || now.Sub(i.focusTime) > focusRefresh {
		i.browser.SetFocus(focused)
		i.lastFocus = focused
		i.focusTime = now
	}
	i.updateHidden()

	i.mu.Lock()
	state := i.state
	i.state.popupEvents = nil
	i.state.crashes = 0
	i.mu.Unlock()

	if i.postponedScroll != nil && !i.hidden && state.lastTitle != "" && state.progress == layout.LoadingComplete {
		i.browser.Scroll(i.postponedScroll.x, i.postponedScroll.y, i.postponedScroll.absolute)
		i.postponedScroll = nil
	}

	i.forwardInput()

	if frames := entry.NeedsNextFrame(); frames > 0 {
		entry.SetNeedsNextFrame(frames - 1)
		i.browser.BeginFrame()
	}

	var flags uint32
	if i.muted {
		flags |= layout.BackendMuted
	}
	if state.loading {
		flags |= layout.BackendLoading
	}
	if state.canGoBack {
		flags |= layout.BackendCanGoBack
	}
	if state.canGoForward {
		flags |= layout.BackendCanGoForward
	}
	if state.hasDocument {
		flags |= layout.BackendHasDocument
	}
	if state.fullscreen {
		flags |= layout.BackendFullscreen
	}
	entry.SetBackendFlags(flags)
	entry.SetZoomLevel(i.zoom)
	entry.SetLoadingProgress(state.progress)
	entry.SetCursor(state.cursor)
	entry.SetAudioPeak(state.audioPeak)
	entry.SetScroll(state.scrollX, state.scrollY)

	for _, event := range state.popupEvents {
		i.applyPopup(event)
	}

	if state.crashes > 0 {
		i.handleCrash(now)
	}

	if entry.ResponseSet() == 0 && i.outbox.Len() > 0 {
		count, err := i.outbox.Flush(entry.Response())
		if err != nil {
			i.logger.Warn("writing events", "error", err)
		}
		if count > 0 {
			entry.PublishResponse(count)
		}
	}
}

func (i *Instance) updateHidden() {
	hidden := i.visibleCounter == 0
	if hidden != i.hidden {
		i.hidden = hidden
		i.browser.SetHidden(hidden)
	}
}

// forwardInput turns the mouse and touch fields into engine input
// events by diffing them against the previous tick.
func (i *Instance) forwardInput() {
	entry := i.entry
	x, y := entry.MouseX(), entry.MouseY()
	previousFlags := i.lastMouseFlags
	flags := entry.MouseFlags()
	i.lastMouseFlags = flags

	if x != i.lastMouseX || y != i.lastMouseY {
		i.browser.MouseMove(int(x), int(y), x == layout.MouseOutside)
		i.lastMouseX, i.lastMouseY = x, y
	}
	if wheel := entry.MouseWheel(); wheel != 0 {
		i.browser.MouseWheel(int(x), int(y), int(wheel))
	}
	if flags != previousFlags {
		for bit := 0; bit < 3; bit++ {
			mask := uint8(1) << bit
			if flags&mask != previousFlags&mask {
				i.browser.MouseButton(int(x), int(y), engine.MouseButton(bit), flags&mask != 0)
			}
		}
	}

	touches := entry.Touches()
	for slot, touch := range touches {
		last := i.lastTouches[slot]
		if touch == last {
			continue
		}
		switch {
		case touch.Active():
			phase := engine.TouchPressed
			if last.Active() {
				phase = engine.TouchMoved
			}
			i.browser.Touch(engine.Touch{ID: slot, X: touch.X, Y: touch.Y, Phase: phase})
		case last.Active():
			phase := engine.TouchReleased
			if touch.X < 0 {
				phase = engine.TouchCancelled
			}
			i.browser.Touch(engine.Touch{ID: slot, X: last.X, Y: last.Y, Phase: phase})
		}
		i.lastTouches[slot] = touch
	}
}

// exportFrames publishes new passthrough frames under fresh names.
func (i *Instance) exportFrames() {
	if texture, changed := i.view.Swap(); changed && texture != nil {
		if err := i.viewRing.Update(texture); err != nil {
			i.logger.Warn("exporting view frame", "error", err)
		}
	}
	if texture, changed := i.popup.Swap(); changed && texture != nil {
		if err := i.popupRing.Update(texture); err != nil {
			i.logger.Warn("exporting popup frame", "error", err)
		}
	}
}

func (i *Instance) applyPopup(event popupEvent) {
	if !event.sized {
		// A shown popup stays invisible until its size arrives.
		if i.config.Passthrough {
			i.popupActive = event.show
		} else {
			i.popupLayer.Move(0, 0, 0, 0)
		}
		return
	}
	bounds := event.bounds
	if i.config.Passthrough {
		i.popupArea = composition.PopupArea(bounds.X, bounds.Y, bounds.Width, bounds.Height, int(i.width), int(i.height))
		return
	}
	i.popupLayer.MovePixels(bounds.X, bounds.Y, bounds.Width, bounds.Height)
}

// handleCrash reacts to render process terminations reported since the
// last tick. A suspended instance is not restarted; in passthrough
// mode it drops its exported frames.
// Otherwise the page is reloaded, and more than crashesInLoop crashes
// within crashWindow end the process.
func (i *Instance) handleCrash(now time.Time) {
	if i.suspended {
		if !i.config.Passthrough {
			return
		}
		if i.keepSuspendedTexture {
			i.viewRing.Clean()
		} else {
			i.entry.SetHandle(0)
			i.viewRing.Reset()
		}
		i.popupActive = false
		i.entry.SetPopupHandle(0)
		i.popupRing.Reset()
		return
	}

	if now.Sub(i.crashWindowStart) > crashWindow {
		i.crashWindowStart = now
		i.crashCounter = 0
	} else {
		i.crashCounter++
		if i.crashCounter > crashesInLoop {
			i.logger.Error("render process keeps crashing", "crashes", i.crashCounter, "window", crashWindow)
			i.exit(process.ExitCrashLoop)
			return
		}
	}
	i.logger.Warn("render process terminated, reloading", "crashes", i.crashCounter)
	i.browser.Reload(false)
}

// Render composites the instance into its shared target texture and
// reports whether anything was drawn. Passthrough instances never
// render.
func (i *Instance) Render() bool {
	if i.config.Passthrough || i.width == 0 || i.height == 0 {
		return false
	}
	if i.target == nil || i.target.Width() != int(i.width) || i.target.Height() != int(i.height) {
		if !i.recreateTarget() {
			return false
		}
	}
	if err := i.device.Clear(i.target, color.RGBA{}); err != nil {
		i.logger.Warn("clearing target", "error", err)
		return false
	}
	if _, err := i.composition.Render(i.device, i.target); err != nil {
		i.logger.Warn("compositing", "error", err)
	}
	return true
}

func (i *Instance) recreateTarget() bool {
	if i.target != nil {
		i.target.Close()
		i.target = nil
	}
	target, err := i.device.CreateTexture(gpu.Descriptor2D(i.name+".target", int(i.width), int(i.height), gpu.FormatBGRA8))
	if err != nil {
		i.logger.Warn("creating target", "error", err, "width", i.width, "height", i.height)
		return false
	}
	handle, err := i.device.Share(target)
	if err != nil {
		target.Close()
		i.logger.Warn("sharing target", "error", err)
		return false
	}
	i.target = target
	i.entry.SetHandle(uint64(handle))
	return true
}

// audioPeakByte scales a peak level in [0, 1] to the entry byte.
func audioPeakByte(peak float32) uint8 {
	if peak <= 0 || math.IsNaN(float64(peak)) {
		return 0
	}
	if peak >= 1 {
		return math.MaxUint8
	}
	return uint8(math.Round(float64(peak) * math.MaxUint8))
}
