// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import "fmt"

// Code is the one-byte record tag.
type Code byte

// Codes shared by both directions.
const (
	// CodeReply answers a request by id: payload "id\x01value".
	CodeReply Code = 0x01
	// CodeLarge carries an overflow descriptor instead of a payload.
	CodeLarge Code = 0x02
)

// Event codes (host to client, response buffer).
const (
	EventLoadStart          Code = '/'
	EventLoadEnd            Code = '0'
	EventOpenURL            Code = '1'
	EventPopup              Code = '2'
	EventJSDialog           Code = '3'
	EventDownload           Code = '4'
	EventContextMenu        Code = '5'
	EventLoadFailed         Code = '6'
	EventFoundResult        Code = '7'
	EventFileDialog         Code = '8'
	EventAuthCredentials    Code = '9'
	EventFormData           Code = ':'
	EventCustomSchemeBrowse Code = ';'
	EventDataFromScript     Code = 'R'
	EventURLMonitor         Code = 'm'
	EventSchemeRequest      Code = 'S'
	EventDownloadUpdate     Code = 'r'
	EventClose              Code = 'x'
	EventFavicon            Code = 'I'
	EventURL                Code = 'U'
	EventTitle              Code = 'T'
	EventStatus             Code = '?'
	EventTooltip            Code = 'O'
	EventAudio              Code = 'A'
	EventVirtualKeyboard    Code = 'v'
)

// Request codes (client to host, commands buffer).
const (
	RequestNavigate           Code = 'N'
	RequestSetOption          Code = 'i'
	RequestFilterResourceURLs Code = 'f'
	RequestSetHeaders         Code = 'h'
	RequestInjectJS           Code = 'j'
	RequestInjectCSS          Code = 's'
	RequestZoom               Code = 'z'
	RequestReload             Code = 'R'
	RequestStop               Code = 'S'
	RequestLifespan           Code = 'U'
	RequestDownload           Code = 'W'
	RequestCommand            Code = 'C'
	RequestInput              Code = 'I'
	RequestKeyDown            Code = '>'
	RequestKeyUp              Code = '<'
	RequestFind               Code = 'd'
	RequestMute               Code = 'M'
	RequestCaptureLost        Code = 'A'
	RequestExecute            Code = 'E'
	RequestDevToolsMessage    Code = 'w'
	RequestSend               Code = 'e'
	RequestScroll             Code = 'l'
	RequestHTML               Code = 'H'
	RequestText               Code = 'T'
	RequestHistory            Code = 'Y'
	RequestWriteCookies       Code = 'o'
	RequestReadCookies        Code = 'c'
	RequestSSL                Code = 'L'
	RequestDownloadImage      Code = 'n'
	RequestControlDownload    Code = 'r'
	RequestFillForm           Code = 'F'
	RequestAwake              Code = 'K'
	RequestColorScheme        Code = 'm'
)

// Attributes describe how a code is queued and dispatched.
type Attributes struct {
	Name string

	// Overriding codes keep at most one pending entry: a newer value
	// replaces the queued one in place.
	Overriding bool

	// Privileged requests are ignored for instances without full
	// access.
	Privileged bool

	// Configure requests found in the commands buffer when an instance
	// is created are applied to the engine settings instead of being
	// dispatched.
	Configure bool

	// Known is false for codes absent from the table. Unknown codes
	// queue normally and are not privileged.
	Known bool
}

// Table maps the codes of one direction to their attributes.
type Table struct {
	direction string
	entries   [256]Attributes
}

func newTable(direction string, entries map[Code]Attributes) *Table {
	table := &Table{direction: direction}
	for code, attributes := range entries {
		attributes.Known = true
		table.entries[code] = attributes
	}
	return table
}

// Direction returns "request" or "event".
func (t *Table) Direction() string { return t.direction }

// Lookup returns the attributes of code.
func (t *Table) Lookup(code Code) Attributes {
	attributes := t.entries[code]
	if !attributes.Known {
		attributes.Name = fmt.Sprintf("0x%02x", byte(code))
	}
	return attributes
}

// Name returns the table name of code, or its hex value.
func (t *Table) Name(code Code) string { return t.Lookup(code).Name }

// Codes returns every known code in ascending order.
func (t *Table) Codes() []Code {
	var codes []Code
	for index := range t.entries {
		if t.entries[index].Known {
			codes = append(codes, Code(index))
		}
	}
	return codes
}

// Events is the host-to-client table.
var Events = newTable("event", map[Code]Attributes{
	CodeReply:               {Name: "reply"},
	CodeLarge:               {Name: "large"},
	EventLoadStart:          {Name: "load_start"},
	EventLoadEnd:            {Name: "load_end"},
	EventOpenURL:            {Name: "open_url"},
	EventPopup:              {Name: "popup"},
	EventJSDialog:           {Name: "jsdialog"},
	EventDownload:           {Name: "download"},
	EventContextMenu:        {Name: "context_menu"},
	EventLoadFailed:         {Name: "load_failed", Overriding: true},
	EventFoundResult:        {Name: "found_result"},
	EventFileDialog:         {Name: "file_dialog"},
	EventAuthCredentials:    {Name: "auth_credentials"},
	EventFormData:           {Name: "form_data"},
	EventCustomSchemeBrowse: {Name: "custom_scheme_browse"},
	EventDataFromScript:     {Name: "data_from_script"},
	EventURLMonitor:         {Name: "url_monitor"},
	EventSchemeRequest:      {Name: "scheme_request"},
	EventDownloadUpdate:     {Name: "download_update"},
	EventClose:              {Name: "close"},
	EventFavicon:            {Name: "favicon", Overriding: true},
	EventURL:                {Name: "url", Overriding: true},
	EventTitle:              {Name: "title", Overriding: true},
	EventStatus:             {Name: "status", Overriding: true},
	EventTooltip:            {Name: "tooltip", Overriding: true},
	EventAudio:              {Name: "audio", Overriding: true},
	EventVirtualKeyboard:    {Name: "virtual_keyboard"},
})

// Requests is the client-to-host table.
var Requests = newTable("request", map[Code]Attributes{
	CodeReply:                 {Name: "reply"},
	CodeLarge:                 {Name: "large"},
	RequestNavigate:           {Name: "navigate", Configure: true},
	RequestSetOption:          {Name: "set_option", Configure: true},
	RequestFilterResourceURLs: {Name: "filter_resource_urls", Configure: true},
	RequestSetHeaders:         {Name: "set_headers", Configure: true, Privileged: true},
	RequestInjectJS:           {Name: "inject_js", Configure: true, Privileged: true},
	RequestInjectCSS:          {Name: "inject_css", Configure: true},
	RequestZoom:               {Name: "zoom"},
	RequestReload:             {Name: "reload"},
	RequestStop:               {Name: "stop"},
	RequestLifespan:           {Name: "lifespan"},
	RequestDownload:           {Name: "download"},
	RequestCommand:            {Name: "command"},
	RequestInput:              {Name: "input"},
	RequestKeyDown:            {Name: "key_down"},
	RequestKeyUp:              {Name: "key_up"},
	RequestFind:               {Name: "find"},
	RequestMute:               {Name: "mute"},
	RequestCaptureLost:        {Name: "capture_lost"},
	RequestExecute:            {Name: "execute", Privileged: true},
	RequestDevToolsMessage:    {Name: "dev_tools_message"},
	RequestSend:               {Name: "send"},
	RequestScroll:             {Name: "scroll"},
	RequestHTML:               {Name: "html", Privileged: true},
	RequestText:               {Name: "text", Privileged: true},
	RequestHistory:            {Name: "history"},
	RequestWriteCookies:       {Name: "write_cookies", Privileged: true},
	RequestReadCookies:        {Name: "read_cookies", Privileged: true},
	RequestSSL:                {Name: "ssl"},
	RequestDownloadImage:      {Name: "download_image"},
	RequestControlDownload:    {Name: "control_download"},
	RequestFillForm:           {Name: "fill_form", Privileged: true},
	RequestAwake:              {Name: "awake"},
	RequestColorScheme:        {Name: "color_scheme"},
})
