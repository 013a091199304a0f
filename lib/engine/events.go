// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

// Navigation describes a main-frame load.
type Navigation struct {
	URL    string
	Secure bool
	Post   bool
	Flags  int
	Status int
}

// LoadFailure describes a failed main-frame load.
type LoadFailure struct {
	URL  string
	Code int
	Text string
}

// LoadingState is the loading and history state of the view.
type LoadingState struct {
	Loading      bool
	CanGoBack    bool
	CanGoForward bool
	HasDocument  bool
}

// Rectangle is a pixel rectangle in view coordinates.
type Rectangle struct {
	X, Y          int
	Width, Height int
}

// OpenURL is a navigation the engine leaves to the client.
type OpenURL struct {
	OriginURL   string
	TargetURL   string
	Disposition string
	UserGesture bool
}

// PopupRequest is a window.open or target=_blank navigation.
type PopupRequest struct {
	OriginURL   string
	TargetURL   string
	FrameName   string
	Disposition string
	Bounds      Rectangle
}

// Dialog is a JavaScript dialog waiting for RespondDialog. Type is
// alert, confirm, prompt or beforeUnload.
type Dialog struct {
	ID            uint64
	Type          string
	Message       string
	OriginURL     string
	DefaultPrompt string
	Reload        bool
}

// AuthRequest is an HTTP authentication challenge waiting for
// RespondAuth.
type AuthRequest struct {
	ID        uint64
	OriginURL string
	Host      string
	Port      int
	Realm     string
	Scheme    string
	Proxy     bool
}

// DownloadRequest is a download waiting for RespondDownload.
type DownloadRequest struct {
	ID            uint32
	URL           string
	OriginalURL   string
	TotalBytes    int64
	MimeType      string
	SuggestedName string
}

// DownloadUpdate reports download progress.
type DownloadUpdate struct {
	ID            uint32
	Complete      bool
	Canceled      bool
	InProgress    bool
	TotalBytes    int64
	CurrentSpeed  int64
	ReceivedBytes int64
}

// FileDialog is a file chooser waiting for RespondFileDialog. Type is
// open, openMultiple, openFolder or save.
type FileDialog struct {
	ID              uint64
	Type            string
	Title           string
	DefaultFilePath string
	AcceptFilters   []string
}

// FoundResult reports in-page search progress.
type FoundResult struct {
	Identifier int
	Index      int
	Count      int
	Rect       Rectangle
	Final      bool
}

// ContextMenu describes a context menu request.
type ContextMenu struct {
	X, Y          int
	LinkURL       string
	SourceURL     string
	SelectionText string
	Editable      bool
}
