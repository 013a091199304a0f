// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/bureau-foundation/webhost/lib/shm"
)

// Namespace returns a segment namespace backed by a fresh temporary
// directory. The directory and every segment in it are removed when the
// test completes.
func Namespace(t *testing.T) shm.Namespace {
	t.Helper()
	return shm.Namespace{Directory: t.TempDir()}
}

// SegmentNames lists the segments currently present in namespace, in
// lexical order. Tests use it to assert that overflow segments were
// unlinked.
func SegmentNames(t *testing.T, namespace shm.Namespace) []string {
	t.Helper()
	entries, err := os.ReadDir(namespace.Directory)
	if err != nil {
		t.Fatalf("listing namespace %s: %v", namespace.Directory, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names
}

var uniqueCounter atomic.Uint64

// UniqueName returns "prefix-N" with N increasing across the test
// binary, for segment names that must not collide between subtests.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
