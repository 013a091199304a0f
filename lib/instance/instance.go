// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/bureau-foundation/webhost/lib/clock"
	"github.com/bureau-foundation/webhost/lib/command"
	"github.com/bureau-foundation/webhost/lib/composition"
	"github.com/bureau-foundation/webhost/lib/engine"
	"github.com/bureau-foundation/webhost/lib/gpu"
	"github.com/bureau-foundation/webhost/lib/layout"
	"github.com/bureau-foundation/webhost/lib/process"
	"github.com/bureau-foundation/webhost/lib/shm"
	"github.com/bureau-foundation/webhost/lib/statusfile"
	"github.com/bureau-foundation/webhost/lib/strview"
	"github.com/bureau-foundation/webhost/lib/texture"
)

const (
	// visibleTicks is how many ticks an instance stays visible after
	// the client last set the visible flag or asked for a frame.
	visibleTicks = 250

	focusRefresh = time.Second

	crashWindow   = 30 * time.Second
	crashesInLoop = 7
)

// Defaults are process-wide engine settings an instance starts from.
type Defaults struct {
	UserAgent       string
	AcceptLanguages string
	DataDirectory   string
}

// Lookup resolves the UUID of a live instance to its segment name.
type Lookup func(uuid int64) (name string, ok bool)

// Options configure New.
type Options struct {
	ID      uint32
	Limited bool

	// Segment is the instance segment, already mapped. The instance
	// takes ownership.
	Segment *shm.Segment

	// Namespace holds overflow segments and passthrough exports.
	Namespace shm.Namespace

	Device  *gpu.Device
	Factory engine.Factory
	Lookup  Lookup

	Defaults Defaults
	Clock    clock.Clock

	// Exit ends the process. Nil means process.Exit.
	Exit   process.Exiter
	Logger *slog.Logger
}

// Instance is one browser instance.
type Instance struct {
	id      uint32
	name    string
	limited bool
	config  Config

	segment   *shm.Segment
	entry     layout.Entry
	namespace shm.Namespace
	device    *gpu.Device
	clock     clock.Clock
	exit      process.Exiter
	logger    *slog.Logger

	settings engine.Settings
	browser  engine.Browser
	reader   *command.Reader
	outbox   *command.Outbox
	replies  *command.ReplyTable

	view  *texture.FrameBuffer
	popup *texture.FrameBuffer

	// composited mode
	composition *composition.Composition
	viewLayer   *composition.Layer
	popupLayer  *composition.Layer
	target      *gpu.Texture

	// passthrough mode
	exportIndex texture.ExportIndex
	viewRing    *texture.ExportRing
	popupRing   *texture.ExportRing
	popupActive bool
	popupArea   [4]float32

	// scheduler goroutine state
	width, height        uint32
	visibleCounter       int
	hidden               bool
	lastFocus            bool
	focusTime            time.Time
	lastMouseX           uint16
	lastMouseY           uint16
	lastMouseFlags       uint8
	lastTouches          [2]layout.Vec2
	postponedScroll      *scrollRequest
	suspended            bool
	keepSuspendedTexture bool
	muted                bool
	zoom                 float32
	crashWindowStart     time.Time
	crashCounter         int

	mu    sync.Mutex
	state engineState
}

// engineState is written by engine callbacks and read at Update.
type engineState struct {
	loading      bool
	canGoBack    bool
	canGoForward bool
	hasDocument  bool
	fullscreen   bool
	progress     uint16
	cursor       uint8
	audioPeak    uint8
	audioPlaying bool
	scrollX      float32
	scrollY      float32
	popupEvents  []popupEvent
	crashes      int

	lastURL     string
	lastTitle   string
	lastFavicon string
	lastStatus  string
	lastTooltip string
}

type popupEvent struct {
	show   bool
	sized  bool
	bounds engine.Rectangle
}

type scrollRequest struct {
	absolute bool
	x, y     int
}

// New creates the instance behind options.Segment. On error the
// segment is closed.
func New(ctx context.Context, options Options) (*Instance, error) {
	segment := options.Segment
	entry, err := layout.NewEntry(segment.Bytes())
	if err != nil {
		segment.Close()
		return nil, fmt.Errorf("instance %d: %w", options.ID, err)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("instance", options.ID)
	exit := options.Exit
	if exit == nil {
		exit = process.Exit
	}
	frameClock := options.Clock
	if frameClock == nil {
		frameClock = clock.Real()
	}

	name := segment.Name()
	config := ParseConfig(strview.CString(entry.Response()))
	for _, warning := range config.Warnings {
		logger.Warn("ignoring configuration line", "detail", warning)
	}

	instance := &Instance{
		id:             options.ID,
		name:           name,
		limited:        options.Limited,
		config:         config,
		segment:        segment,
		entry:          entry,
		namespace:      options.Namespace,
		device:         options.Device,
		clock:          frameClock,
		exit:           exit,
		logger:         logger,
		replies:        command.NewReplyTable(),
		visibleCounter: visibleTicks,
		width:          entry.Width(),
		height:         entry.Height(),
		lastTouches:    entry.Touches(),
		lastMouseX:     entry.MouseX(),
		lastMouseY:     entry.MouseY(),
		reader: &command.Reader{
			Namespace: options.Namespace,
			Instance:  name,
			Logger:    logger,
		},
		outbox: command.NewOutbox(command.OutboxConfig{
			Table:       command.Events,
			Namespace:   options.Namespace,
			Instance:    name,
			Compression: config.Compression,
			Logger:      logger,
		}),
	}
	instance.settings = instance.initialSettings(options.Defaults)
	instance.configurePending()

	if config.DevTools != 0 {
		parent, ok := "", false
		if options.Lookup != nil {
			parent, ok = options.Lookup(config.DevTools)
		}
		if ok {
			instance.settings.DevToolsFor = parent
			instance.settings.DevToolsInspect = config.DevToolsInspect
		} else {
			instance.settings.URL = "about:blank#blocked"
		}
	}

	instance.view = texture.NewFrameBuffer(options.Device, name+".view", exit, logger)
	instance.popup = texture.NewFrameBuffer(options.Device, name+".popup", exit, logger)

	browser, err := options.Factory.Create(ctx, instance.settings, &handler{instance: instance})
	if err != nil {
		instance.outbox.Close()
		segment.Close()
		return nil, fmt.Errorf("instance %d: creating browser: %w", options.ID, err)
	}
	instance.browser = browser

	if config.Passthrough {
		prefix := name + ".T"
		instance.viewRing = texture.NewExportRing(options.Device, prefix, &instance.exportIndex, logger)
		instance.popupRing = texture.NewExportRing(options.Device, prefix, &instance.exportIndex, logger)
		browser.Resize(int(instance.width), int(instance.height))
	} else {
		instance.composition = composition.New(int(instance.width), int(instance.height))
		instance.viewLayer = composition.NewLayer(composition.ExternalView{Buffer: instance.view, View: browser}, true)
		instance.popupLayer = composition.NewLayer(composition.PopupOverlay{Buffer: instance.popup}, true)
		instance.composition.Add(instance.viewLayer)
		instance.composition.Add(instance.popupLayer)
		instance.viewLayer.Move(0, 0, 1, 1)
	}
	if config.RedirectAudio {
		browser.SetMuted(true)
	}

	logger.Info("instance created",
		"segment", name,
		"uuid", config.UUID,
		"limited", options.Limited,
		"passthrough", config.Passthrough,
		"width", instance.width,
		"height", instance.height,
	)
	return instance, nil
}

func (i *Instance) initialSettings(defaults Defaults) engine.Settings {
	config := i.config
	settings := engine.Settings{
		ID:              i.name,
		Width:           int(i.width),
		Height:          int(i.height),
		Passthrough:     config.Passthrough,
		BackgroundColor: config.BackgroundColor,
		UserAgent:       defaults.UserAgent,
		AcceptLanguages: defaults.AcceptLanguages,
		DefaultEncoding: config.DefaultEncoding,
		DataDirectory:   defaults.DataDirectory,
		DataKey:         config.DataKey,
		RedirectAudio:   config.RedirectAudio,
		Fonts:           config.Fonts,
		Features:        config.Features,
		Options:         make(map[string]string),
		Limited:         i.limited,
	}
	if config.AcceptLanguages != "" {
		settings.AcceptLanguages = config.AcceptLanguages
	}
	if config.HasDataKey && config.DataKey != "" && defaults.DataDirectory != "" {
		settings.DataDirectory = filepath.Join(defaults.DataDirectory, config.DataKey)
	}
	return settings
}

// configurePending applies the configure-class commands waiting in the
// commands buffer to the settings and packs every other record back
// for the first Update.
func (i *Instance) configurePending() {
	count := i.entry.CommandsSet()
	if count == 0 {
		return
	}
	commands := i.entry.Commands()
	delayed := make([]byte, len(commands))
	offset, kept := 0, uint32(0)
	err := command.Decode(commands, count, func(record command.Record) {
		if record.Code != command.CodeLarge && i.configure(record.Code, record.Payload) {
			return
		}
		next, ok := command.PutRecord(delayed, offset, record.Code, record.Payload)
		if !ok {
			i.logger.Warn("dropping queued command", "code", command.Requests.Name(record.Code))
			return
		}
		offset = next
		kept++
	})
	if err != nil {
		i.logger.Warn("reading queued commands", "error", err)
	}
	copy(commands, delayed[:offset])
	i.entry.PublishCommands(kept)
}

// ID returns the directory id.
func (i *Instance) ID() uint32 { return i.id }

// Name returns the segment name.
func (i *Instance) Name() string { return i.name }

// UUID returns the client-assigned UUID, or zero.
func (i *Instance) UUID() int64 { return i.config.UUID }

// Limited reports whether the instance lacks full access.
func (i *Instance) Limited() bool { return i.limited }

// Passthrough reports whether frames are exported instead of
// composited.
func (i *Instance) Passthrough() bool { return i.config.Passthrough }

// Status is a point-in-time summary for status reports.
type Status = statusfile.Instance

// Status returns the instance summary. Called from the scheduler
// goroutine.
func (i *Instance) Status() Status {
	i.mu.Lock()
	url, title, loading := i.state.lastURL, i.state.lastTitle, i.state.loading
	i.mu.Unlock()
	return Status{
		ID:             i.id,
		UUID:           i.config.UUID,
		Segment:        i.name,
		Limited:        i.limited,
		Passthrough:    i.config.Passthrough,
		Width:          i.width,
		Height:         i.height,
		URL:            url,
		Title:          title,
		Loading:        loading,
		Hidden:         i.hidden,
		Suspended:      i.suspended,
		PendingEvents:  i.outbox.Len(),
		PendingReplies: i.replies.Len(),
		Crashes:        i.crashCounter,
	}
}

// Close tears the instance down: layers are detached, the browser is
// closed, pending replies are dropped and every segment the instance
// owns is released.
func (i *Instance) Close() error {
	if i.composition != nil {
		i.composition.Detach()
	}
	i.browser.Close()
	if dropped := i.replies.Drop(); dropped > 0 {
		i.logger.Debug("dropped pending replies", "count", dropped)
	}

	var errs []error
	if err := i.outbox.Close(); err != nil {
		errs = append(errs, err)
	}
	if i.viewRing != nil {
		i.viewRing.Reset()
		i.popupRing.Reset()
	}
	i.view.Close()
	i.popup.Close()
	if i.target != nil {
		if err := i.target.Close(); err != nil {
			errs = append(errs, err)
		}
		i.target = nil
	}
	if err := i.segment.Close(); err != nil {
		errs = append(errs, err)
	}
	i.logger.Info("instance closed")
	return errors.Join(errs...)
}
