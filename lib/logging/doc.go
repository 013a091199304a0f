// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the process logger.
//
// Records fan out (samber/slog-multi) to up to three sinks: stderr, as
// text when stderr is a terminal and JSON otherwise; an optional JSON
// log file; and the systemd journal when the process runs as a
// systemd service. Under systemd the stderr sink is dropped since the
// journal already captures it.
package logging
