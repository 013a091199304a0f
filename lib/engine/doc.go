// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine defines the boundary between a browser instance and
// the browsing engine that renders it.
//
// A [Factory] creates one [Browser] per instance. The instance drives
// the browser through Browser methods from the frame loop; the engine
// reports back through the [Handler] it was created with, from its own
// goroutines. Browser methods must not block on the engine: an
// implementation queues work and reports results through the handler.
//
// Requests that expect an answer from the client (dialogs, downloads,
// file choosers, authentication) carry an engine-assigned ID and are
// answered with the matching Respond method. Queries issued with a
// token (page source, history, cookies, image downloads) complete
// through [Handler.OnReply] with the same token.
//
// [Fake] is an in-memory engine for tests. The Chromium adapter lives
// in lib/engine/playwright.
package engine
