// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package playwright

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	pw "github.com/playwright-community/playwright-go"

	"github.com/bureau-foundation/webhost/lib/engine"
)

// DefaultCaptureInterval is the capture period of a visible page.
const DefaultCaptureInterval = 50 * time.Millisecond

// Config configures the Chromium factory.
type Config struct {
	// Install downloads the driver and Chromium when missing.
	Install bool

	// Headful shows browser windows. Only useful for debugging.
	Headful bool

	// Args are extra Chromium command line arguments.
	Args []string

	// CaptureInterval is the capture period of a visible page. Zero
	// means DefaultCaptureInterval.
	CaptureInterval time.Duration

	Logger *slog.Logger
}

// Factory launches Chromium once and creates one page per browser.
type Factory struct {
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	runtime  *pw.Playwright
	chromium pw.Browser
}

// New returns a factory. Chromium starts at the first Create.
func New(config Config) *Factory {
	if config.CaptureInterval <= 0 {
		config.CaptureInterval = DefaultCaptureInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Factory{config: config, logger: logger}
}

func (f *Factory) start() (pw.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chromium != nil {
		return f.chromium, nil
	}

	options := &pw.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if f.config.Install {
		if err := pw.Install(options); err != nil {
			return nil, fmt.Errorf("installing playwright: %w", err)
		}
	}
	runtime, err := pw.Run(options)
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}
	chromium, err := runtime.Chromium.Launch(pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(!f.config.Headful),
		Args:     f.config.Args,
	})
	if err != nil {
		runtime.Stop()
		return nil, fmt.Errorf("launching chromium: %w", err)
	}
	f.runtime = runtime
	f.chromium = chromium
	f.logger.Info("chromium started", "version", chromium.Version())
	return chromium, nil
}

// Create opens a page for settings and starts its worker.
func (f *Factory) Create(ctx context.Context, settings engine.Settings, handler engine.Handler) (engine.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chromium, err := f.start()
	if err != nil {
		return nil, err
	}

	contextOptions := pw.BrowserNewContextOptions{
		Viewport:          &pw.Size{Width: max(settings.Width, 1), Height: max(settings.Height, 1)},
		AcceptDownloads:   pw.Bool(true),
		HasTouch:          pw.Bool(true),
		JavaScriptEnabled: pw.Bool(settings.Feature("javascript", true)),
		IgnoreHttpsErrors: pw.Bool(settings.Options["ignoreCertificateErrors"] != ""),
	}
	if settings.UserAgent != "" {
		contextOptions.UserAgent = pw.String(settings.UserAgent)
	}
	if locale := firstLanguage(settings.AcceptLanguages); locale != "" {
		contextOptions.Locale = pw.String(locale)
	}
	browserContext, err := chromium.NewContext(contextOptions)
	if err != nil {
		return nil, fmt.Errorf("creating browser context for %s: %w", settings.ID, err)
	}
	page, err := browserContext.NewPage()
	if err != nil {
		browserContext.Close()
		return nil, fmt.Errorf("opening page for %s: %w", settings.ID, err)
	}
	cdp, err := browserContext.NewCDPSession(page)
	if err != nil {
		f.logger.Warn("devtools session unavailable", "browser", settings.ID, "error", err)
		cdp = nil
	}

	browser := newBrowser(browserConfig{
		settings: settings,
		handler:  handler,
		context:  browserContext,
		page:     page,
		cdp:      cdp,
		interval: f.config.CaptureInterval,
		logger:   f.logger.With("browser", settings.ID),
	})
	browser.start()
	return browser, nil
}

// Close stops Chromium and the driver.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chromium == nil {
		return nil
	}
	err := f.chromium.Close()
	if stopErr := f.runtime.Stop(); err == nil {
		err = stopErr
	}
	f.chromium, f.runtime = nil, nil
	return err
}

// firstLanguage returns the first tag of an Accept-Language list.
func firstLanguage(list string) string {
	first, _, _ := strings.Cut(list, ",")
	first, _, _ = strings.Cut(first, ";")
	return strings.TrimSpace(first)
}
