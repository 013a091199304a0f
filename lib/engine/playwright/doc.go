// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package playwright implements engine.Factory on headless Chromium
// driven through playwright-go.
//
// One Chromium process serves every browser; each browser gets its own
// browser context and page. Browser methods queue work on a per-page
// worker goroutine, so the frame loop never waits on the driver. The
// worker also captures the page on a fixed interval while the view is
// visible and feeds the captures to the CPU paint path.
//
// Chromium's compositor output is not reachable through the driver, so
// Settings.Passthrough still paints through OnPaint; the host exports
// those frames itself. HTTP authentication challenges are answered by
// the driver from context credentials and never reach OnAuth.
package playwright
