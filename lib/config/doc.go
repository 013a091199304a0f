// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the webhost
// process.
//
// Configuration starts from [Default], which is wire-compatible with
// existing clients (parity tiers, the AcTools segment prefixes, 60
// ticks per second). When WEBHOST_CONFIG names a YAML file it is
// merged on top, and the ACCSPWB_* environment variables the client
// sets when it spawns the host override both. ${VAR} and
// ${VAR:-default} patterns are expanded in path fields last.
//
// Key exports:
//
//   - [Config] -- master struct with Directory, Pacing, Access,
//     Engine, GPU, Logging and Status sections
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [AccessConfig.Limited] and [AccessConfig.SegmentName] -- the
//     tier rule mapping instance ids to access and segment names
//
// This package depends on no other webhost packages.
package config
