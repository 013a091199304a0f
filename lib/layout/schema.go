// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"fmt"
	"sort"
)

// Owner identifies which side writes a field.
type Owner uint8

const (
	// OwnerPadding marks reserved bytes nobody writes.
	OwnerPadding Owner = iota
	// OwnerHost fields are written only by the host.
	OwnerHost
	// OwnerClient fields are written only by the client.
	OwnerClient
	// OwnerShared fields are counters with a documented handoff: one
	// side publishes a non-zero value, the other resets it.
	OwnerShared
)

func (o Owner) String() string {
	switch o {
	case OwnerPadding:
		return "padding"
	case OwnerHost:
		return "host"
	case OwnerClient:
		return "client"
	case OwnerShared:
		return "shared"
	default:
		return fmt.Sprintf("owner(%d)", o)
	}
}

// Field is one entry of a schema.
type Field struct {
	Name   string
	Offset int
	Size   int
	Owner  Owner

	// Atomic fields are accessed with shm.Publish/shm.Acquire and must
	// be naturally aligned to their size.
	Atomic bool
}

// End returns the offset one past the field.
func (f Field) End() int { return f.Offset + f.Size }

// Schema is an ordered field table describing a fixed-size record.
type Schema struct {
	Name   string
	Size   int
	Fields []Field
}

// Validate checks that the fields tile the record exactly: sorted by
// offset, no gaps, no overlaps, atomic fields aligned, and the last
// field ending at Size.
func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("layout %s: no fields", s.Name)
	}
	fields := append([]Field(nil), s.Fields...)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Offset < fields[j].Offset })

	names := make(map[string]bool, len(fields))
	cursor := 0
	for _, field := range fields {
		if field.Size <= 0 {
			return fmt.Errorf("layout %s: field %s has non-positive size %d", s.Name, field.Name, field.Size)
		}
		if names[field.Name] {
			return fmt.Errorf("layout %s: duplicate field %s", s.Name, field.Name)
		}
		names[field.Name] = true
		if field.Offset < cursor {
			return fmt.Errorf("layout %s: field %s at %d overlaps previous field ending at %d", s.Name, field.Name, field.Offset, cursor)
		}
		if field.Offset > cursor {
			return fmt.Errorf("layout %s: gap of %d bytes before field %s at %d", s.Name, field.Offset-cursor, field.Name, field.Offset)
		}
		if field.Atomic && field.Size != 4 && field.Size != 8 {
			return fmt.Errorf("layout %s: atomic field %s must be 4 or 8 bytes, is %d", s.Name, field.Name, field.Size)
		}
		if field.Atomic && field.Offset%field.Size != 0 {
			return fmt.Errorf("layout %s: atomic field %s at %d is not %d-byte aligned", s.Name, field.Name, field.Offset, field.Size)
		}
		cursor = field.End()
	}
	if cursor != s.Size {
		return fmt.Errorf("layout %s: fields end at %d, record size is %d", s.Name, cursor, s.Size)
	}
	return nil
}

// Field returns the named field. It panics for unknown names: field
// names are compile-time constants of this package.
func (s Schema) Field(name string) Field {
	for _, field := range s.Fields {
		if field.Name == name {
			return field
		}
	}
	panic(fmt.Sprintf("layout %s: no field %q", s.Name, name))
}

// Check validates the schema and that buffer is large enough to hold
// one record.
func (s Schema) Check(buffer []byte) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if len(buffer) < s.Size {
		return fmt.Errorf("layout %s: buffer is %d bytes, record needs %d", s.Name, len(buffer), s.Size)
	}
	return nil
}
