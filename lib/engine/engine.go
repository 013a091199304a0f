// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import "context"

// Factory creates browsers.
type Factory interface {
	Create(ctx context.Context, settings Settings, handler Handler) (Browser, error)
}

// Surface selects the view or its popup (select menus, autofill).
type Surface int

const (
	SurfaceView Surface = iota
	SurfacePopup
)

func (s Surface) String() string {
	if s == SurfacePopup {
		return "popup"
	}
	return "view"
}

// MouseButton identifies a pointer button.
type MouseButton int

const (
	ButtonLeft MouseButton = iota
	ButtonMiddle
	ButtonRight
)

// TouchPhase is the state of one touch point.
type TouchPhase int

const (
	TouchPressed TouchPhase = iota
	TouchMoved
	TouchReleased
	TouchCancelled
)

// Touch is one touch point in view pixels.
type Touch struct {
	ID    int
	X, Y  float32
	Phase TouchPhase
}

// KeyEvent is a key press or release. Code is a Windows virtual-key
// code.
type KeyEvent struct {
	Code   int
	Down   bool
	Repeat bool
}

// FindQuery starts or continues an in-page search. An empty Text
// clears the search.
type FindQuery struct {
	Text      string
	Forward   bool
	MatchCase bool
	FindNext  bool
}

// Rule pairs a URL pattern (a regular expression; empty matches
// everything) with a value.
type Rule struct {
	Pattern string
	Value   string
}

// HeaderRule adds headers to requests whose URL matches Pattern.
type HeaderRule struct {
	Pattern string
	Headers [][2]string
}

// Cookie is a browser cookie. Expires is unix seconds; zero means a
// session cookie.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	Expires  int64
}

// Browser is one engine browser.
type Browser interface {
	Navigate(url string)
	GoBack()
	GoForward()
	Reload(ignoreCache bool)
	Stop()
	SetZoom(level float64)

	// Resize sets the view size in pixels.
	Resize(width, height int)
	SetFocus(focused bool)
	SetHidden(hidden bool)

	MouseMove(x, y int, leave bool)
	MouseWheel(x, y, delta int)
	MouseButton(x, y int, button MouseButton, down bool)
	Touch(touch Touch)
	Key(event KeyEvent)
	InsertText(text string)
	CaptureLost()

	// EditCommand runs undo, redo, cut, copy, paste, delete,
	// selectAll, print or exitFullscreen.
	EditCommand(name string)
	Find(query FindQuery)
	Execute(script string)
	Scroll(x, y int, absolute bool)
	SetMuted(muted bool)
	SetColorScheme(scheme string)

	// SetOption passes an engine option not handled by the instance.
	SetOption(key, value string)
	SetHeaders(rules []HeaderRule)
	SetInjections(css, js []Rule)
	// SetResourceFilter enables resource URL reports for URLs
	// matching pattern. Empty disables them.
	SetResourceFilter(pattern string)
	DevToolsMessage(method, params string)

	// Send delivers a message to page scripts.
	Send(channel, data, extra string)
	FillForm(fields []string)

	StartDownload(url string)
	ControlDownload(id uint32, action string)

	// Queries answered through Handler.OnReply.
	Source(token string, text bool)
	History(token string, forward bool)
	Security(token string)
	Cookies(token, url string)
	DownloadImage(token, url string, favicon bool, maxSize int)

	WriteCookie(url string, cookie Cookie)
	DeleteCookies(url, name string)

	RespondDialog(id uint64, accept bool, text string)
	RespondAuth(id uint64, user, password string, ok bool)
	RespondDownload(id uint32, path string)
	RespondFileDialog(id uint64, paths []string)

	// BeginFrame asks for a paint even when nothing changed.
	BeginFrame()
	Suspend()
	Resume()
	Close()
}

// Handler receives engine callbacks. Methods are called from engine
// goroutines and must not call back into the Browser synchronously.
type Handler interface {
	OnLoadStart(navigation Navigation)
	OnLoadEnd(navigation Navigation)
	OnLoadFailed(failure LoadFailure)
	OnAddressChange(url string)
	OnTitleChange(title string)
	OnStatusMessage(text string)
	OnTooltip(text string)
	OnFaviconChange(urls []string)
	OnLoadingState(state LoadingState)
	OnLoadingProgress(progress float64)

	OnPaint(surface Surface, pixels []byte, width, height, stride int)
	OnGPUPaint(surface Surface, handle uint64)
	OnPopupShow(show bool)
	OnPopupSize(rect Rectangle)
	OnScroll(x, y float32)
	OnCursor(cursor int)
	OnAudio(playing bool, peak float32)
	OnFullscreen(fullscreen bool)

	OnOpenURL(request OpenURL)
	OnPopupRequest(request PopupRequest)
	OnDialog(dialog Dialog)
	OnAuth(request AuthRequest)
	OnDownload(request DownloadRequest)
	OnDownloadUpdate(update DownloadUpdate)
	OnFileDialog(request FileDialog)
	OnFoundResult(result FoundResult)
	OnContextMenu(menu ContextMenu)
	OnVirtualKeyboard(mode string)
	OnResourceLoaded(url string)
	OnDataFromScript(data string)
	OnReply(token string, value []byte)

	// OnTerminated reports that the render process died.
	OnTerminated(reason string)
	OnClosed()
}
