// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/webhost/lib/clock"
	"github.com/bureau-foundation/webhost/lib/config"
	"github.com/bureau-foundation/webhost/lib/engine"
	"github.com/bureau-foundation/webhost/lib/gpu"
	"github.com/bureau-foundation/webhost/lib/instance"
	"github.com/bureau-foundation/webhost/lib/layout"
	"github.com/bureau-foundation/webhost/lib/process"
	"github.com/bureau-foundation/webhost/lib/shm"
)

// Opener creates the member for a newly listed id. lookup resolves
// devtools parents among the live members.
type Opener func(ctx context.Context, id uint32, lookup instance.Lookup) (Member, error)

// InstanceOptions configure InstanceOpener.
type InstanceOptions struct {
	Namespace shm.Namespace
	Access    config.AccessConfig
	Device    *gpu.Device
	Factory   engine.Factory
	Defaults  instance.Defaults
	Clock     clock.Clock
	Exit      process.Exiter
	Logger    *slog.Logger
}

// InstanceOpener returns an Opener that maps the instance segment the
// access rule names for each id, existing-only, and builds an
// instance on it.
func InstanceOpener(options InstanceOptions) Opener {
	return func(ctx context.Context, id uint32, lookup instance.Lookup) (Member, error) {
		name := options.Access.SegmentName(id)
		segment, err := options.Namespace.Open(name, layout.EntrySize, true)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		created, err := instance.New(ctx, instance.Options{
			ID:        id,
			Limited:   options.Access.Limited(id),
			Segment:   segment,
			Namespace: options.Namespace,
			Device:    options.Device,
			Factory:   options.Factory,
			Lookup:    lookup,
			Defaults:  options.Defaults,
			Clock:     options.Clock,
			Exit:      options.Exit,
			Logger:    options.Logger,
		})
		if err != nil {
			return nil, err
		}
		return created, nil
	}
}
