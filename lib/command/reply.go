// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
	"sync"
)

// ContinuationKind tags what a pending reply resumes.
type ContinuationKind uint8

const (
	ContinueDialog ContinuationKind = iota + 1
	ContinueAuth
	ContinueBeforeDownload
	ContinueFileDialog
	ContinueBeforeUnload
)

func (k ContinuationKind) String() string {
	switch k {
	case ContinueDialog:
		return "dialog"
	case ContinueAuth:
		return "auth"
	case ContinueBeforeDownload:
		return "before_download"
	case ContinueFileDialog:
		return "file_dialog"
	case ContinueBeforeUnload:
		return "before_unload"
	default:
		return fmt.Sprintf("continuation(%d)", k)
	}
}

// Continuation identifies the engine request a client reply resumes.
// Subject is the engine-side request id.
type Continuation struct {
	Kind    ContinuationKind
	Subject uint64
}

// ReplyTable correlates request ids sent to the client with the engine
// requests waiting for an answer. Ids start at 1 and only grow.
type ReplyTable struct {
	mu      sync.Mutex
	next    uint64
	pending map[uint64]Continuation
}

// NewReplyTable returns an empty table.
func NewReplyTable() *ReplyTable {
	return &ReplyTable{pending: make(map[uint64]Continuation)}
}

// Register stores continuation and returns its id.
func (t *ReplyTable) Register(continuation Continuation) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.pending[t.next] = continuation
	return t.next
}

// Resolve removes and returns the continuation for id. Unknown and
// already resolved ids report false.
func (t *ReplyTable) Resolve(id uint64) (Continuation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	continuation, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	return continuation, ok
}

// Len returns the number of unresolved ids.
func (t *ReplyTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Drop forgets every pending continuation without resolving it and
// returns how many there were. Engine requests behind them never
// complete.
func (t *ReplyTable) Drop() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	dropped := len(t.pending)
	clear(t.pending)
	return dropped
}
