// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package inspect shows what a running host is doing.
//
// [Collect] builds a [Report] from two sources: the status file the
// scheduler writes periodically (instances, frame statistics, ids that
// failed to open) and the live directory segment (the ids the client
// currently lists and any sentinel it has set). Comparing the two
// shows ids the host has not picked up yet and instances it still runs
// for ids the client dropped.
//
// [WriteTable] prints a report as plain text for pipes and scripts.
// [Model] is the interactive bubbletea viewer: an instance list with
// a detail pane, refreshed on a timer, with rows that glow briefly
// when an instance appears or goes away.
package inspect
