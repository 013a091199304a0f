// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package instance runs one browser instance behind its shared
// segment.
//
// An [Instance] is created by the scheduler the first time its id
// appears in the directory. Construction reads the configuration block
// the client left in the response buffer, applies configure-class
// commands already queued in the commands buffer to the engine
// settings, and creates the engine browser. Every tick the scheduler
// calls [Instance.Update], which mirrors the client's input fields
// into the engine, dispatches published commands and publishes queued
// responses, and then [Instance.Render], which composites the view and
// popup into the shared render target.
//
// In passthrough mode (directRender=1, the default) nothing is
// composited: each new view or popup frame is exported under a
// rotating name "<segment>.T.<index>" and the index is published in
// the handle fields.
//
// Instances without full access silently ignore privileged requests:
// script injection and execution, custom headers, page source and
// text, javascript: navigation, printing, cookies, form filling and
// most devtools messages.
//
// Update, Render and Close belong to the scheduler goroutine. Engine
// callbacks arrive on engine goroutines and only touch the outbox,
// the reply table, the frame buffers and mutex-guarded state.
package instance
