// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process owns the host's exit statuses and the raw stderr
// reporting that happens before or after the structured logger.
//
// Exit codes are part of the host's contract with the client that
// launched it: the client reads them to tell a deliberate shutdown (0)
// from a configuration problem (1), a device or loop failure (10), a
// missing directory segment (11), a bad shared texture (20), an engine
// crash loop (29) or an escaped panic (57). Every exit path in the
// repository goes through [ExitCode]; components deep in the frame loop
// receive an [Exiter] instead of calling os.Exit so tests can assert
// the code.
//
// main() reports errors from run() with [Fail], which honours a code
// attached with [WithCode] and falls back to [ExitUsage].
package process
