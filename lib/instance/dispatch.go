// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instance

import (
	"strings"

	"github.com/bureau-foundation/webhost/lib/command"
	"github.com/bureau-foundation/webhost/lib/engine"
	"github.com/bureau-foundation/webhost/lib/strview"
)

const (
	partSeparator  = command.PartSeparator
	fieldSeparator = 0x02
)

// dispatch executes one client request against the browser.
func (i *Instance) dispatch(record command.Record) {
	code, value := record.Code, record.Payload
	attributes := command.Requests.Lookup(code)
	if attributes.Privileged && i.limited && code != command.RequestReadCookies {
		i.deny(attributes.Name, code, value)
		return
	}

	browser := i.browser
	switch code {
	case command.RequestNavigate:
		if i.suspended {
			return
		}
		i.navigate(value)

	case command.RequestZoom:
		i.zoom = float32(value.Float(0))
		browser.SetZoom(float64(i.zoom))

	case command.RequestReload:
		if !i.suspended {
			browser.Reload(value.Equal("nocache"))
		}

	case command.RequestStop:
		if !i.suspended {
			browser.Stop()
		}

	case command.RequestDownload:
		browser.StartDownload(value.String())

	case command.RequestLifespan:
		switch {
		case value.Equal("close"):
			browser.Close()
		case value.Equal("suspend"):
			i.suspended = true
			browser.Suspend()
		case value.Equal("resume"):
			i.suspended = false
			browser.Resume()
		}

	case command.RequestCommand:
		i.editCommand(value.String())

	case command.RequestInput:
		browser.InsertText(value.String())

	case command.RequestKeyDown, command.RequestKeyUp:
		repeat := len(value) > 0 && value[0] == partSeparator
		if repeat {
			value = value.Sub(1)
		}
		browser.Key(engine.KeyEvent{
			Code:   int(value.Int(0)),
			Down:   code == command.RequestKeyDown,
			Repeat: repeat,
		})

	case command.RequestFind:
		if len(value) > 3 {
			browser.Find(engine.FindQuery{
				Text:      value.Sub(3).String(),
				Forward:   value[0] == '1',
				MatchCase: value[1] == '1',
				FindNext:  value[2] == '1',
			})
		} else {
			browser.Find(engine.FindQuery{})
		}

	case command.RequestDownloadImage:
		parts := value.Split(partSeparator, false, false, 0)
		if len(parts) < 4 {
			i.logger.Warn("malformed download_image request", "parts", len(parts))
			return
		}
		browser.DownloadImage(parts[0].String(), parts[1].String(), parts[2].Equal("1"), int(parts[3].Int(0)))

	case command.RequestMute:
		i.muted = value.Equal("1")
		if !i.config.RedirectAudio {
			browser.SetMuted(i.muted)
		}

	case command.RequestScroll:
		parts := value.Split(partSeparator, false, false, 0)
		if len(parts) != 3 {
			i.logger.Warn("malformed scroll request", "parts", len(parts))
			return
		}
		request := scrollRequest{
			absolute: parts[0].Equal("1"),
			x:        int(parts[1].Int(0)),
			y:        int(parts[2].Int(0)),
		}
		if i.pageReady() {
			browser.Scroll(request.x, request.y, request.absolute)
		} else {
			i.postponedScroll = &request
		}

	case command.RequestCaptureLost:
		browser.CaptureLost()

	case command.RequestExecute:
		browser.Execute(value.String())

	case command.RequestDevToolsMessage:
		i.devToolsMessage(value)

	case command.RequestColorScheme:
		browser.SetColorScheme(value.String())

	case command.RequestControlDownload:
		id, action := value.Pair(partSeparator)
		browser.ControlDownload(uint32(id.Uint(0)), action.String())

	case command.RequestAwake:
		i.visibleCounter = visibleTicks
		i.updateHidden()

	case command.RequestFillForm:
		parts := value.Split(partSeparator, false, false, 0)
		fields := make([]string, len(parts))
		for index, part := range parts {
			fields[index] = part.String()
		}
		browser.FillForm(fields)

	case command.RequestHTML, command.RequestText:
		browser.Source(value.String(), code == command.RequestText)

	case command.RequestWriteCookies:
		i.writeCookies(value)

	case command.RequestReadCookies:
		parts := value.Split(partSeparator, false, false, 3)
		token := parts[0].String()
		mode, url := part(parts, 1), part(parts, 2)
		if i.limited && !mode.Equal("count") {
			i.deny(attributes.Name, code, value)
			return
		}
		browser.Cookies(token, url.String())

	case command.RequestHistory:
		token, direction := value.Pair(partSeparator)
		browser.History(token.String(), direction.Equal("forward"))

	case command.RequestSSL:
		browser.Security(value.String())

	case command.RequestSend:
		parts := value.Split(partSeparator, false, false, 3)
		browser.Send(parts[0].String(), part(parts, 1).String(), part(parts, 2).String())

	case command.CodeReply:
		i.resolveReply(value)

	default:
		if !i.configure(code, value) {
			i.logger.Debug("ignoring unknown request", "code", attributes.Name)
		}
	}
}

// deny drops a privileged request from a limited instance. Queries
// still get an empty answer so the client stops waiting.
func (i *Instance) deny(name string, code command.Code, value strview.View) {
	i.logger.Warn("full access required", "request", name)
	switch code {
	case command.RequestHTML, command.RequestText:
		i.outbox.SetParts(command.CodeReply, value.String(), "")
	case command.RequestReadCookies:
		token, _ := value.Pair(partSeparator)
		i.outbox.SetParts(command.CodeReply, token.String(), "")
	}
}

func (i *Instance) pageReady() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state.lastTitle != "" && i.state.progress == 0xFFFF
}

func (i *Instance) navigate(value strview.View) {
	browser := i.browser
	switch {
	case value.Equal("back"):
		browser.GoBack()
	case value.Equal("forward"):
		browser.GoForward()
	case value.HasPrefix("back:") || value.HasPrefix("forward:"):
		_, count := value.Pair(':')
		for step := count.Uint(0); step > 0; step-- {
			if value[0] == 'b' {
				browser.GoBack()
			} else {
				browser.GoForward()
			}
		}
	case value.HasPrefixFold("javascript:") && i.limited:
		i.logger.Warn("full access required", "request", "navigate to javascript URL")
	default:
		browser.Navigate(value.String())
	}
}

func (i *Instance) editCommand(name string) {
	switch name {
	case "undo", "redo", "copy", "cut", "paste", "delete", "selectAll", "exitFullscreen":
		i.browser.EditCommand(name)
	case "print":
		if i.limited {
			i.logger.Warn("full access required", "request", "print")
			return
		}
		i.browser.EditCommand(name)
	default:
		i.logger.Debug("ignoring unknown edit command", "command", name)
	}
}

// devToolsMessage forwards "method\x01params" to the protocol. Method
// names are checked before they are framed into a message.
func (i *Instance) devToolsMessage(value strview.View) {
	method, params := value.Pair(partSeparator)
	if strings.ContainsAny(method.String(), "\"\\\n\r") {
		i.logger.Warn("damaged devtools command", "method", method.String())
		return
	}
	allowed := method.HasPrefix("Emulation.") ||
		method.HasPrefix("Overlay.") ||
		method.Equal("Network.emulateNetworkConditions")
	if !allowed && i.limited {
		i.logger.Warn("full access required", "request", "devtools "+method.String())
		return
	}
	i.browser.DevToolsMessage(method.String(), params.String())
}

// writeCookies handles "url\x01name" deletions and
// "url\x01name\x01field\x02value..." writes.
func (i *Instance) writeCookies(value strview.View) {
	parts := value.Split(partSeparator, false, false, 3)
	if len(parts) <= 2 {
		if parts[0].Equal("@recent") {
			// Engines expose no cookie access times.
			i.logger.Debug("ignoring recent cookie cleanup", "max_age", part(parts, 1).String())
			return
		}
		i.browser.DeleteCookies(parts[0].String(), part(parts, 1).String())
		return
	}
	cookie := engine.Cookie{Name: parts[1].String()}
	for _, field := range parts[2].Pairs(fieldSeparator) {
		key, fieldValue := field[0], field[1]
		switch {
		case key.Equal("value"):
			cookie.Value = fieldValue.String()
		case key.Equal("domain"):
			cookie.Domain = fieldValue.String()
		case key.Equal("path"):
			cookie.Path = fieldValue.String()
		case key.Equal("secure"):
			cookie.Secure = fieldValue.Equal("1")
		case key.Equal("HTTPOnly"):
			cookie.HTTPOnly = fieldValue.Equal("1")
		case key.Equal("expirationTime"):
			cookie.Expires = fieldValue.Int(0)
		}
	}
	i.browser.WriteCookie(parts[0].String(), cookie)
}

// resolveReply resumes the engine request a client reply answers.
// Unknown and repeated ids are dropped.
func (i *Instance) resolveReply(value strview.View) {
	id, data, ok := command.ParseReply(value)
	if !ok {
		i.logger.Warn("malformed reply")
		return
	}
	continuation, found := i.replies.Resolve(id)
	if !found {
		i.logger.Debug("reply for unknown request", "reply_id", id)
		return
	}
	browser := i.browser
	switch continuation.Kind {
	case command.ContinueDialog, command.ContinueBeforeUnload:
		accept, text := data.Pair(partSeparator)
		browser.RespondDialog(continuation.Subject, accept.Equal("1"), text.String())
	case command.ContinueAuth:
		if data.Empty() {
			browser.RespondAuth(continuation.Subject, "", "", false)
			return
		}
		user, password := data.Pair(partSeparator)
		browser.RespondAuth(continuation.Subject, user.String(), password.String(), true)
	case command.ContinueBeforeDownload:
		browser.RespondDownload(uint32(continuation.Subject), data.String())
	case command.ContinueFileDialog:
		var paths []string
		if !data.Empty() {
			for _, path := range data.Split(partSeparator, false, false, 0) {
				paths = append(paths, path.String())
			}
		}
		browser.RespondFileDialog(continuation.Subject, paths)
	}
}

// configure applies the requests that shape the engine settings. It
// runs both before the browser exists, when only the settings change,
// and at runtime, when the browser is updated too. Reports whether the
// code was a configure request.
func (i *Instance) configure(code command.Code, value strview.View) bool {
	attributes := command.Requests.Lookup(code)
	if !attributes.Configure {
		return false
	}
	if attributes.Privileged && i.limited {
		i.logger.Warn("full access required", "request", attributes.Name)
		return true
	}
	settings := &i.settings
	browser := i.browser

	switch code {
	case command.RequestNavigate:
		if value.HasPrefixFold("javascript:") && i.limited {
			i.logger.Warn("full access required", "request", "navigate to javascript URL")
			return true
		}
		settings.URL = value.String()

	case command.RequestSetOption:
		key, optionValue := value.Pair(partSeparator)
		i.setOption(key.String(), optionValue.String())

	case command.RequestFilterResourceURLs:
		settings.ResourceFilter = value.String()
		if browser != nil {
			browser.SetResourceFilter(settings.ResourceFilter)
		}

	case command.RequestSetHeaders:
		settings.Headers = settings.Headers[:0]
		for _, pair := range value.Pairs(partSeparator) {
			rule := engine.HeaderRule{Pattern: pair[0].String()}
			for _, header := range pair[1].Pairs(fieldSeparator) {
				rule.Headers = append(rule.Headers, [2]string{header[0].String(), header[1].String()})
			}
			settings.Headers = append(settings.Headers, rule)
		}
		if browser != nil {
			browser.SetHeaders(settings.Headers)
		}

	case command.RequestInjectCSS:
		settings.InjectCSS = settings.InjectCSS[:0]
		for _, pair := range value.Pairs(partSeparator) {
			settings.InjectCSS = append(settings.InjectCSS, engine.Rule{
				Pattern: pair[0].String(),
				Value:   sanitizeStyle(pair[1].String()),
			})
		}
		if browser != nil {
			browser.SetInjections(settings.InjectCSS, settings.InjectJS)
		}

	case command.RequestInjectJS:
		settings.InjectJS = settings.InjectJS[:0]
		for _, pair := range value.Pairs(partSeparator) {
			script := pair[1].String()
			if strings.Contains(script, "</script>") {
				continue
			}
			settings.InjectJS = append(settings.InjectJS, engine.Rule{Pattern: pair[0].String(), Value: script})
		}
		if browser != nil {
			browser.SetInjections(settings.InjectCSS, settings.InjectJS)
		}
	}
	return true
}

var privilegedOptions = map[string]bool{
	"trackFormData":              true,
	"redirectNonStandardSchemes": true,
	"collectResourceURLs":        true,
}

var engineOptions = map[string]bool{
	"ignoreCertificateErrors":    true,
	"trackFormData":              true,
	"redirectNavigation":         true,
	"redirectNonStandardSchemes": true,
	"collectResourceURLs":        true,
	"scaleFactor":                true,
	"invalidateView":             true,
}

func (i *Instance) setOption(key, value string) {
	if privilegedOptions[key] && i.limited {
		i.logger.Warn("full access required", "request", "set_option "+key)
		return
	}
	if key == "keepSuspendedTexture" {
		i.keepSuspendedTexture = value == "1"
		return
	}
	if !engineOptions[key] {
		i.logger.Warn("unknown option", "option", key)
		return
	}
	i.settings.Options[key] = value
	if i.browser != nil {
		i.browser.SetOption(key, value)
	}
}

// sanitizeStyle breaks any "</style" so injected CSS cannot close its
// own element.
func sanitizeStyle(css string) string {
	lower := strings.ToLower(css)
	if !strings.Contains(lower, "</style") {
		return css
	}
	result := []byte(css)
	for offset := 0; ; {
		index := strings.Index(lower[offset:], "</style")
		if index < 0 {
			return string(result)
		}
		result[offset+index] = '?'
		offset += index + 1
	}
}

func part(parts []strview.View, index int) strview.View {
	if index < len(parts) {
		return parts[index]
	}
	return nil
}
