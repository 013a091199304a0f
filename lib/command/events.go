// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import "github.com/bureau-foundation/webhost/lib/codec"

// Structured event payloads. Each is CBOR-encoded with lib/codec into
// the payload of the matching Event code. Simple events (url, title,
// status, tooltip, favicon, audio, close) carry plain strings instead.

// Navigation describes a main-frame load_start or load_end.
type Navigation struct {
	Secure bool `cbor:"secure"`
	Post   bool `cbor:"post"`
	Flags  int  `cbor:"flags"`
	Status int  `cbor:"status"`
}

// LoadFailure is the load_failed payload.
type LoadFailure struct {
	FailedURL string `cbor:"failedURL"`
	ErrorCode int    `cbor:"errorCode"`
	ErrorText string `cbor:"errorText"`
}

// OpenURL is the open_url payload: a navigation the host declined to
// perform itself, left to the client.
type OpenURL struct {
	OriginURL   string `cbor:"originURL"`
	TargetURL   string `cbor:"targetURL"`
	Disposition string `cbor:"targetDisposition"`
	UserGesture bool   `cbor:"userGesture"`
}

// PopupRequest is the popup payload.
type PopupRequest struct {
	OriginURL       string        `cbor:"originURL"`
	TargetURL       string        `cbor:"targetURL"`
	TargetFrameName string        `cbor:"targetFrameName,omitempty"`
	Disposition     string        `cbor:"targetDisposition"`
	Features        PopupFeatures `cbor:"features"`
}

// PopupFeatures mirrors window.open features. Zero means unset.
type PopupFeatures struct {
	X      int `cbor:"x,omitempty"`
	Y      int `cbor:"y,omitempty"`
	Width  int `cbor:"width,omitempty"`
	Height int `cbor:"height,omitempty"`
}

// Dialog is the jsdialog payload. Type is alert, confirm, prompt or
// beforeUnload. The client answers with a reply "1\x01text" to accept
// or "0" to dismiss.
type Dialog struct {
	Type          string `cbor:"type"`
	Message       string `cbor:"message"`
	OriginURL     string `cbor:"originURL,omitempty"`
	DefaultPrompt string `cbor:"defaultPrompt,omitempty"`
	Reload        bool   `cbor:"reload,omitempty"`
	ReplyID       uint64 `cbor:"replyID"`
}

// AuthRequest is the auth_credentials payload. The client replies
// "user\x01password" or an empty value to cancel.
type AuthRequest struct {
	OriginURL string `cbor:"originURL"`
	Host      string `cbor:"host"`
	Port      int    `cbor:"port"`
	Realm     string `cbor:"realm,omitempty"`
	Scheme    string `cbor:"scheme,omitempty"`
	Proxy     bool   `cbor:"proxy"`
	ReplyID   uint64 `cbor:"replyID"`
}

// DownloadRequest is the download payload. The client replies with
// the destination filename, or an empty value to refuse.
type DownloadRequest struct {
	ID            uint32 `cbor:"ID"`
	DownloadURL   string `cbor:"downloadURL"`
	OriginalURL   string `cbor:"originalURL,omitempty"`
	TotalBytes    int64  `cbor:"totalBytes,omitempty"`
	MimeType      string `cbor:"mimeType"`
	SuggestedName string `cbor:"suggestedName"`
	ReplyID       uint64 `cbor:"replyID"`
}

// Download state bits of DownloadUpdate.Flags.
const (
	DownloadComplete   uint32 = 1
	DownloadCanceled   uint32 = 2
	DownloadInProgress uint32 = 4
)

// DownloadUpdate is the download_update payload.
type DownloadUpdate struct {
	ID            uint32 `cbor:"ID"`
	Flags         uint32 `cbor:"flags"`
	TotalBytes    int64  `cbor:"totalBytes"`
	CurrentSpeed  int64  `cbor:"currentSpeed"`
	ReceivedBytes int64  `cbor:"receivedBytes"`
}

// FoundResult is the found_result payload.
type FoundResult struct {
	Identifier int       `cbor:"identifier"`
	Index      int       `cbor:"index"`
	Count      int       `cbor:"count"`
	Rect       Rectangle `cbor:"rect"`
	Final      bool      `cbor:"final"`
}

// Rectangle is a pixel rectangle in view coordinates.
type Rectangle struct {
	X      int `cbor:"x"`
	Y      int `cbor:"y"`
	Width  int `cbor:"width"`
	Height int `cbor:"height"`
}

// FileDialogRequest is the file_dialog payload. The client replies
// with the chosen paths joined by 0x01, or an empty value to cancel.
type FileDialogRequest struct {
	Type            string   `cbor:"type"`
	Title           string   `cbor:"title,omitempty"`
	DefaultFilePath string   `cbor:"defaultFilePath,omitempty"`
	AcceptFilters   []string `cbor:"acceptFilters"`
	ReplyID         uint64   `cbor:"replyID"`
}

// ContextMenu is the context_menu payload.
type ContextMenu struct {
	X             int    `cbor:"x"`
	Y             int    `cbor:"y"`
	LinkURL       string `cbor:"linkURL,omitempty"`
	SourceURL     string `cbor:"sourceURL,omitempty"`
	SelectionText string `cbor:"selectionText,omitempty"`
	Editable      bool   `cbor:"editable"`
}

// VirtualKeyboard is the virtual_keyboard payload, sent when an
// editable element gains or loses focus.
type VirtualKeyboard struct {
	Mode string `cbor:"mode"`
}

// SetEvent encodes payload with lib/codec and queues it under code.
func (o *Outbox) SetEvent(code Code, payload any) error {
	data, err := codec.Marshal(payload)
	if err != nil {
		return err
	}
	o.Set(code, data)
	return nil
}
