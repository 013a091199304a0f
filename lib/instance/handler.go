// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instance

import (
	"math"

	"github.com/bureau-foundation/webhost/lib/command"
	"github.com/bureau-foundation/webhost/lib/engine"
	"github.com/bureau-foundation/webhost/lib/gpu"
	"github.com/bureau-foundation/webhost/lib/layout"
)

// handler turns engine callbacks into queued events and entry state.
// Callbacks arrive on engine goroutines.
type handler struct {
	instance *Instance
}

var _ engine.Handler = (*handler)(nil)

func (h *handler) event(code command.Code, payload any) {
	if err := h.instance.outbox.SetEvent(code, payload); err != nil {
		h.instance.logger.Warn("encoding event", "code", command.Events.Name(code), "error", err)
	}
}

// changed stores value in *last and reports whether it differed.
func (h *handler) changed(last *string, value string) bool {
	h.instance.mu.Lock()
	defer h.instance.mu.Unlock()
	if *last == value {
		return false
	}
	*last = value
	return true
}

func (h *handler) updateURL(url string) {
	if h.changed(&h.instance.state.lastURL, url) {
		h.instance.outbox.SetString(command.EventURL, url)
	}
}

func navigationPayload(navigation engine.Navigation) command.Navigation {
	return command.Navigation{
		Secure: navigation.Secure,
		Post:   navigation.Post,
		Flags:  navigation.Flags,
		Status: navigation.Status,
	}
}

func (h *handler) OnLoadStart(navigation engine.Navigation) {
	h.updateURL(navigation.URL)
	h.event(command.EventLoadStart, navigationPayload(navigation))
}

func (h *handler) OnLoadEnd(navigation engine.Navigation) {
	h.event(command.EventLoadEnd, navigationPayload(navigation))
}

// errAborted is the engine code of a navigation cancelled by another
// one; it is not reported.
const errAborted = -3

func (h *handler) OnLoadFailed(failure engine.LoadFailure) {
	if failure.Code == errAborted {
		return
	}
	h.event(command.EventLoadFailed, command.LoadFailure{
		FailedURL: failure.URL,
		ErrorCode: failure.Code,
		ErrorText: failure.Text,
	})
	h.updateURL(failure.URL)
}

func (h *handler) OnAddressChange(url string) { h.updateURL(url) }

func (h *handler) OnTitleChange(title string) {
	if h.changed(&h.instance.state.lastTitle, title) {
		h.instance.outbox.SetString(command.EventTitle, title)
	}
}

func (h *handler) OnStatusMessage(text string) {
	if h.changed(&h.instance.state.lastStatus, text) {
		h.instance.outbox.SetString(command.EventStatus, text)
	}
}

func (h *handler) OnTooltip(text string) {
	if h.changed(&h.instance.state.lastTooltip, text) {
		h.instance.outbox.SetString(command.EventTooltip, text)
	}
}

func (h *handler) OnFaviconChange(urls []string) {
	var favicon string
	if len(urls) > 0 {
		favicon = urls[0]
	}
	if h.changed(&h.instance.state.lastFavicon, favicon) {
		h.instance.outbox.SetString(command.EventFavicon, favicon)
	}
}

func (h *handler) OnLoadingState(state engine.LoadingState) {
	h.instance.mu.Lock()
	defer h.instance.mu.Unlock()
	h.instance.state.loading = state.Loading
	h.instance.state.canGoBack = state.CanGoBack
	h.instance.state.canGoForward = state.CanGoForward
	h.instance.state.hasDocument = state.HasDocument
}

func (h *handler) OnLoadingProgress(progress float64) {
	progress = math.Max(0, math.Min(progress, 1))
	h.instance.mu.Lock()
	h.instance.state.progress = uint16(progress * layout.LoadingComplete)
	h.instance.mu.Unlock()
}

func (h *handler) buffer(surface engine.Surface) interface {
	OnPaint(pixels []byte, width, height, stride int)
	OnGPUPaint(handle gpu.Handle)
} {
	if surface == engine.SurfacePopup {
		return h.instance.popup
	}
	return h.instance.view
}

func (h *handler) OnPaint(surface engine.Surface, pixels []byte, width, height, stride int) {
	h.buffer(surface).OnPaint(pixels, width, height, stride)
}

func (h *handler) OnGPUPaint(surface engine.Surface, handle uint64) {
	h.buffer(surface).OnGPUPaint(gpu.Handle(handle))
}

func (h *handler) OnPopupShow(show bool) {
	h.instance.mu.Lock()
	h.instance.state.popupEvents = append(h.instance.state.popupEvents, popupEvent{show: show})
	h.instance.mu.Unlock()
}

func (h *handler) OnPopupSize(rect engine.Rectangle) {
	h.instance.mu.Lock()
	h.instance.state.popupEvents = append(h.instance.state.popupEvents, popupEvent{sized: true, bounds: rect})
	h.instance.mu.Unlock()
}

func (h *handler) OnScroll(x, y float32) {
	h.instance.mu.Lock()
	h.instance.state.scrollX, h.instance.state.scrollY = x, y
	h.instance.mu.Unlock()
}

func (h *handler) OnCursor(cursor int) {
	h.instance.mu.Lock()
	h.instance.state.cursor = uint8(cursor)
	h.instance.mu.Unlock()
}

func (h *handler) OnAudio(playing bool, peak float32) {
	h.instance.mu.Lock()
	wasPlaying := h.instance.state.audioPlaying
	h.instance.state.audioPlaying = playing
	h.instance.state.audioPeak = audioPeakByte(peak)
	if !playing {
		h.instance.state.audioPeak = 0
	}
	h.instance.mu.Unlock()
	if playing != wasPlaying {
		if playing {
			h.instance.outbox.SetString(command.EventAudio, "1")
		} else {
			h.instance.outbox.SetString(command.EventAudio, "0")
		}
	}
}

func (h *handler) OnFullscreen(fullscreen bool) {
	h.instance.mu.Lock()
	h.instance.state.fullscreen = fullscreen
	h.instance.mu.Unlock()
}

func (h *handler) OnOpenURL(request engine.OpenURL) {
	h.event(command.EventOpenURL, command.OpenURL{
		OriginURL:   request.OriginURL,
		TargetURL:   request.TargetURL,
		Disposition: request.Disposition,
		UserGesture: request.UserGesture,
	})
}

func (h *handler) OnPopupRequest(request engine.PopupRequest) {
	h.event(command.EventPopup, command.PopupRequest{
		OriginURL:       request.OriginURL,
		TargetURL:       request.TargetURL,
		TargetFrameName: request.FrameName,
		Disposition:     request.Disposition,
		Features: command.PopupFeatures{
			X:      request.Bounds.X,
			Y:      request.Bounds.Y,
			Width:  request.Bounds.Width,
			Height: request.Bounds.Height,
		},
	})
}

func (h *handler) OnDialog(dialog engine.Dialog) {
	kind := command.ContinueDialog
	if dialog.Type == "beforeUnload" {
		kind = command.ContinueBeforeUnload
	}
	replyID := h.instance.replies.Register(command.Continuation{Kind: kind, Subject: dialog.ID})
	h.event(command.EventJSDialog, command.Dialog{
		Type:          dialog.Type,
		Message:       dialog.Message,
		OriginURL:     dialog.OriginURL,
		DefaultPrompt: dialog.DefaultPrompt,
		Reload:        dialog.Reload,
		ReplyID:       replyID,
	})
}

func (h *handler) OnAuth(request engine.AuthRequest) {
	replyID := h.instance.replies.Register(command.Continuation{Kind: command.ContinueAuth, Subject: request.ID})
	h.event(command.EventAuthCredentials, command.AuthRequest{
		OriginURL: request.OriginURL,
		Host:      request.Host,
		Port:      request.Port,
		Realm:     request.Realm,
		Scheme:    request.Scheme,
		Proxy:     request.Proxy,
		ReplyID:   replyID,
	})
}

func (h *handler) OnDownload(request engine.DownloadRequest) {
	replyID := h.instance.replies.Register(command.Continuation{
		Kind:    command.ContinueBeforeDownload,
		Subject: uint64(request.ID),
	})
	h.event(command.EventDownload, command.DownloadRequest{
		ID:            request.ID,
		DownloadURL:   request.URL,
		OriginalURL:   request.OriginalURL,
		TotalBytes:    request.TotalBytes,
		MimeType:      request.MimeType,
		SuggestedName: request.SuggestedName,
		ReplyID:       replyID,
	})
}

func (h *handler) OnDownloadUpdate(update engine.DownloadUpdate) {
	var flags uint32
	if update.Complete {
		flags |= command.DownloadComplete
	}
	if update.Canceled {
		flags |= command.DownloadCanceled
	}
	if update.InProgress {
		flags |= command.DownloadInProgress
	}
	h.event(command.EventDownloadUpdate, command.DownloadUpdate{
		ID:            update.ID,
		Flags:         flags,
		TotalBytes:    update.TotalBytes,
		CurrentSpeed:  update.CurrentSpeed,
		ReceivedBytes: update.ReceivedBytes,
	})
}

func (h *handler) OnFileDialog(request engine.FileDialog) {
	replyID := h.instance.replies.Register(command.Continuation{Kind: command.ContinueFileDialog, Subject: request.ID})
	filters := request.AcceptFilters
	if filters == nil {
		filters = []string{}
	}
	h.event(command.EventFileDialog, command.FileDialogRequest{
		Type:            request.Type,
		Title:           request.Title,
		DefaultFilePath: request.DefaultFilePath,
		AcceptFilters:   filters,
		ReplyID:         replyID,
	})
}

func (h *handler) OnFoundResult(result engine.FoundResult) {
	h.event(command.EventFoundResult, command.FoundResult{
		Identifier: result.Identifier,
		Index:      result.Index,
		Count:      result.Count,
		Rect: command.Rectangle{
			X:      result.Rect.X,
			Y:      result.Rect.Y,
			Width:  result.Rect.Width,
			Height: result.Rect.Height,
		},
		Final: result.Final,
	})
}

func (h *handler) OnContextMenu(menu engine.ContextMenu) {
	h.event(command.EventContextMenu, command.ContextMenu{
		X:             menu.X,
		Y:             menu.Y,
		LinkURL:       menu.LinkURL,
		SourceURL:     menu.SourceURL,
		SelectionText: menu.SelectionText,
		Editable:      menu.Editable,
	})
}

func (h *handler) OnVirtualKeyboard(mode string) {
	h.event(command.EventVirtualKeyboard, command.VirtualKeyboard{Mode: mode})
}

func (h *handler) OnResourceLoaded(url string) {
	h.instance.outbox.SetString(command.EventURLMonitor, url)
}

func (h *handler) OnDataFromScript(data string) {
	h.instance.outbox.SetString(command.EventDataFromScript, data)
}

func (h *handler) OnReply(token string, value []byte) {
	payload := make([]byte, 0, len(token)+1+len(value))
	payload = append(payload, token...)
	payload = append(payload, command.PartSeparator)
	payload = append(payload, value...)
	h.instance.outbox.Set(command.CodeReply, payload)
}

func (h *handler) OnTerminated(reason string) {
	h.instance.logger.Warn("render process terminated", "reason", reason)
	h.instance.mu.Lock()
	h.instance.state.crashes++
	h.instance.mu.Unlock()
}

func (h *handler) OnClosed() {
	h.instance.outbox.SetString(command.EventClose, "")
}
