// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package shm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultDirectory is the memory-backed filesystem used for segments
// when no namespace directory is configured.
const DefaultDirectory = "/dev/shm"

var (
	// ErrNotFound is returned when an existing-only open finds no
	// segment with the requested name.
	ErrNotFound = errors.New("shm: segment not found")

	// ErrAccessDenied is returned when the segment exists but the
	// process may not map it read/write.
	ErrAccessDenied = errors.New("shm: access denied")

	// ErrTooSmall is returned when an existing segment is smaller than
	// the requested size.
	ErrTooSmall = errors.New("shm: segment smaller than requested size")

	// ErrInvalidName is returned for empty names or names containing a
	// path separator.
	ErrInvalidName = errors.New("shm: invalid segment name")

	// ErrExists is returned by CreateNew when the name is taken.
	ErrExists = errors.New("shm: segment already exists")
)

type openMode uint8

const (
	openExisting openMode = iota
	openOrCreate
	createExclusive
)

// Namespace is a directory holding named segments.
type Namespace struct {
	// Directory is the filesystem directory backing the namespace.
	// Empty means DefaultDirectory.
	Directory string
}

// Default returns the namespace backed by DefaultDirectory.
func Default() Namespace {
	return Namespace{Directory: DefaultDirectory}
}

func (n Namespace) directory() string {
	if n.Directory == "" {
		return DefaultDirectory
	}
	return n.Directory
}

// Path returns the filesystem path backing the named segment.
func (n Namespace) Path(name string) string {
	return filepath.Join(n.directory(), name)
}

// Segment is one mapped shared region. The byte view returned by Bytes
// has exactly the size requested at open time.
type Segment struct {
	mu      sync.Mutex
	name    string
	path    string
	fd      int
	data    []byte
	created bool
}

// Open maps the named segment. With existingOnly, a missing segment
// fails with ErrNotFound and an existing one must be at least size
// bytes. Without it, the segment is created when missing and grown to
// size when smaller.
func (n Namespace) Open(name string, size int, existingOnly bool) (*Segment, error) {
	if existingOnly {
		return n.open(name, size, openExisting)
	}
	return n.open(name, size, openOrCreate)
}

// Create is Open without existingOnly.
func (n Namespace) Create(name string, size int) (*Segment, error) {
	return n.open(name, size, openOrCreate)
}

// CreateNew creates and maps a segment that must not exist yet. It
// fails with ErrExists otherwise.
func (n Namespace) CreateNew(name string, size int) (*Segment, error) {
	return n.open(name, size, createExclusive)
}

func (n Namespace) open(name string, size int, mode openMode) (*Segment, error) {
	if name == "" || strings.ContainsRune(name, '/') || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if size <= 0 {
		return nil, fmt.Errorf("shm: segment %s: size must be positive, got %d", name, size)
	}

	segment := &Segment{name: name, path: n.Path(name), fd: -1}

	flags := unix.O_RDWR | unix.O_CLOEXEC
	switch mode {
	case openOrCreate:
		flags |= unix.O_CREAT
	case createExclusive:
		flags |= unix.O_CREAT | unix.O_EXCL
	}
	fd, err := unix.Open(segment.path, flags, 0o600)
	if err != nil {
		return nil, classify(name, err)
	}
	segment.fd = fd

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		segment.Close()
		return nil, fmt.Errorf("shm: stating segment %s: %w", name, err)
	}

	if stat.Size < int64(size) {
		if mode == openExisting {
			segment.Close()
			return nil, fmt.Errorf("%w: %s is %d bytes, need %d", ErrTooSmall, name, stat.Size, size)
		}
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			segment.Close()
			return nil, fmt.Errorf("shm: sizing segment %s to %d bytes: %w", name, size, err)
		}
		segment.created = stat.Size == 0
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		segment.Close()
		return nil, fmt.Errorf("shm: mapping segment %s: %w", name, classify(name, err))
	}
	segment.data = data
	return segment, nil
}

// Remove unlinks the named segment. A missing segment is not an error.
func (n Namespace) Remove(name string) error {
	if err := unix.Unlink(n.Path(name)); err != nil && !errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("shm: removing segment %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a segment with the given name is present.
func (n Namespace) Exists(name string) bool {
	_, err := os.Stat(n.Path(name))
	return err == nil
}

func classify(name string, err error) error {
	switch {
	case errors.Is(err, unix.ENOENT):
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	case errors.Is(err, unix.EEXIST):
		return fmt.Errorf("%w: %s", ErrExists, name)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %s", ErrAccessDenied, name)
	}
	return err
}

// Name returns the segment name within its namespace.
func (s *Segment) Name() string { return s.name }

// Created reports whether this Open call brought the segment into
// existence.
func (s *Segment) Created() bool { return s.created }

// Bytes returns the mapped view. It is nil after Close.
func (s *Segment) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Len returns the mapped size.
func (s *Segment) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Close unmaps the view and closes the descriptor. The segment name
// stays in the namespace. Close is idempotent and safe on a segment
// whose Open failed part-way.
func (s *Segment) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.data != nil {
		if err := unix.Munmap(s.data); err != nil {
			firstErr = fmt.Errorf("shm: unmapping segment %s: %w", s.name, err)
		}
		s.data = nil
	}
	if s.fd >= 0 {
		if err := unix.Close(s.fd); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shm: closing segment %s: %w", s.name, err)
		}
		s.fd = -1
	}
	return firstErr
}

// Unlink closes the segment and removes its name from the namespace.
func (s *Segment) Unlink() error {
	closeErr := s.Close()
	if err := unix.Unlink(s.path); err != nil && !errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("shm: unlinking segment %s: %w", s.name, err)
	}
	return closeErr
}
