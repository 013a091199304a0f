// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [Namespace] gives each test its own segment namespace in a temporary
// directory, so tests that create instance records, directories and
// overflow segments never touch /dev/shm and never see each other's
// segments. [SegmentNames] lists what a namespace still holds, which
// is how tests check that overflow segments were released.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern for channels fed by engine goroutines. They are the only
// place in the test suite that waits on the wall clock; pacing tests
// use the fake clock from lib/clock instead.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
