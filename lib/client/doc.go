// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is the client side of the host protocol.
//
// A [Directory] owns the directory segment that lists instance ids.
// An [Instance] owns one instance record: it writes the configuration
// block before the host first sees the id, queues requests and
// publishes them when the host has consumed the previous batch, and
// polls events the host published. Large requests travel through
// overflow segments exactly as the host's own large events do.
//
// The package exists for end-to-end tests and operator scripts; the
// production client lives in the embedding application.
package client
