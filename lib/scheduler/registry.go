// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"sync"

	"github.com/bureau-foundation/webhost/lib/instance"
)

// Member is a live instance as the scheduler drives it.
// *instance.Instance implements it.
type Member interface {
	ID() uint32
	Name() string
	UUID() int64

	// Update syncs the instance with its segment.
	Update()

	// Render composes a frame and reports whether it drew anything.
	Render() bool

	Status() instance.Status
	Close() error
}

type member struct {
	Member
	heartbeat uint64
}

// Registry maps directory ids to live members, in creation order.
type Registry struct {
	mu      sync.Mutex
	members map[uint32]*member
	order   []*member
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{members: make(map[uint32]*member)}
}

// Len returns the number of live members.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Get returns the member registered under id.
func (r *Registry) Get(id uint32) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.members[id]
	if !ok {
		return nil, false
	}
	return entry.Member, true
}

// Lookup returns the segment name of the member whose configuration
// carries uuid. Its signature matches instance.Lookup.
func (r *Registry) Lookup(uuid int64) (string, bool) {
	if uuid == 0 {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.order {
		if entry.UUID() == uuid {
			return entry.Name(), true
		}
	}
	return "", false
}

// Statuses returns the status of every member, in creation order.
func (r *Registry) Statuses() []instance.Status {
	r.mu.Lock()
	members := make([]*member, len(r.order))
	copy(members, r.order)
	r.mu.Unlock()

	statuses := make([]instance.Status, 0, len(members))
	for _, entry := range members {
		statuses = append(statuses, entry.Status())
	}
	return statuses
}

// heartbeat marks id as listed at tick. It reports false when id is
// not registered.
func (r *Registry) heartbeat(id uint32, tick uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.members[id]
	if ok {
		entry.heartbeat = tick
	}
	return ok
}

// heartbeatAll marks every member as listed at tick.
func (r *Registry) heartbeatAll(tick uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.order {
		entry.heartbeat = tick
	}
}

func (r *Registry) add(m Member, tick uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := &member{Member: m, heartbeat: tick}
	r.members[m.ID()] = entry
	r.order = append(r.order, entry)
}

// removeStale unregisters every member whose heartbeat is not tick
// and returns them newest first.
func (r *Registry) removeStale(tick uint64) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []Member
	kept := r.order[:0]
	for _, entry := range r.order {
		if entry.heartbeat == tick {
			kept = append(kept, entry)
			continue
		}
		delete(r.members, entry.ID())
		stale = append(stale, entry.Member)
	}
	clear(r.order[len(kept):])
	r.order = kept
	for left, right := 0, len(stale)-1; left < right; left, right = left+1, right-1 {
		stale[left], stale[right] = stale[right], stale[left]
	}
	return stale
}

// removeAll unregisters every member and returns them newest first.
func (r *Registry) removeAll() []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]Member, 0, len(r.order))
	for index := len(r.order) - 1; index >= 0; index-- {
		all = append(all, r.order[index].Member)
	}
	clear(r.members)
	r.order = nil
	return all
}

// live returns the members in creation order.
func (r *Registry) live() []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := make([]Member, len(r.order))
	for index, entry := range r.order {
		members[index] = entry.Member
	}
	return members
}
