// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"os"
	"slices"
	"time"

	"github.com/bureau-foundation/webhost/lib/clock"
	"github.com/bureau-foundation/webhost/lib/layout"
	"github.com/bureau-foundation/webhost/lib/process"
	"github.com/bureau-foundation/webhost/lib/statusfile"
)

const (
	// flushEvery forces a device flush on ticks that are a multiple
	// of it even when nothing rendered.
	flushEvery = 512

	// slack is added to the schedule lag when computing the sleep
	// timeout.
	slack = 16 * time.Millisecond

	// minSleep is the shortest sleep between ticks. A timeout below it
	// means the loop is behind and runs a catch-up tick first.
	minSleep = 4 * time.Millisecond

	shutdownDelay = 100 * time.Millisecond

	// DefaultStatusEvery is how often frame statistics are logged and
	// the status file written, in ticks.
	DefaultStatusEvery = 4096
)

// Flusher submits batched device work. *gpu.Device implements it.
type Flusher interface {
	Flush() error
}

// Options configure New.
type Options struct {
	// Directory is the mapped directory segment.
	Directory layout.Directory

	// DirectoryName is reported in the status file.
	DirectoryName string

	Open   Opener
	Device Flusher

	// Period is the target tick period.
	Period time.Duration

	// UseTimer paces ticks from a periodic ticker instead of adaptive
	// sleeping.
	UseTimer bool

	// Step, when set, runs after every tick and is accounted as
	// engine time.
	Step func()

	// StatusFile is written every StatusEvery ticks. Empty disables
	// it.
	StatusFile  string
	StatusEvery uint64
	Version     string

	Clock  clock.Clock
	Exit   process.Exiter
	Logger *slog.Logger
}

// Scheduler owns the instance registry and the frame loop. All methods
// must be called from one goroutine.
type Scheduler struct {
	directory     layout.Directory
	directoryName string
	open          Opener
	device        Flusher
	period        time.Duration
	useTimer      bool
	step          func()
	statusFile    string
	statusEvery   uint64
	version       string
	clock         clock.Clock
	exit          process.Exiter
	logger        *slog.Logger

	registry *Registry
	failed   map[uint32]struct{}
	ids      []uint32

	tick      uint64
	startTick uint64
	started   time.Time

	// Cumulative time spent in ticks, engine steps and sleeps since
	// the last statistics report.
	window      statsWindow
	tickTime    time.Duration
	engineTime  time.Duration
	sleepTime   time.Duration
	lastTimeout time.Duration
}

type statsWindow struct {
	tick    uint64
	elapsed time.Duration
}

// New returns a Scheduler. Period must be positive.
func New(options Options) (*Scheduler, error) {
	if options.Open == nil {
		return nil, fmt.Errorf("scheduler: Open is required")
	}
	if options.Period <= 0 {
		return nil, fmt.Errorf("scheduler: period must be positive, got %v", options.Period)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	frameClock := options.Clock
	if frameClock == nil {
		frameClock = clock.Real()
	}
	exit := options.Exit
	if exit == nil {
		exit = process.Exit
	}
	statusEvery := options.StatusEvery
	if statusEvery == 0 {
		statusEvery = DefaultStatusEvery
	}
	return &Scheduler{
		directory:     options.Directory,
		directoryName: options.DirectoryName,
		open:          options.Open,
		device:        options.Device,
		period:        options.Period,
		useTimer:      options.UseTimer,
		step:          options.Step,
		statusFile:    options.StatusFile,
		statusEvery:   statusEvery,
		version:       options.Version,
		clock:         frameClock,
		exit:          exit,
		logger:        logger,
		registry:      NewRegistry(),
		failed:        make(map[uint32]struct{}),
	}, nil
}

// Registry returns the live instance registry.
func (s *Scheduler) Registry() *Registry { return s.registry }

// Ticks returns the number of completed ticks.
func (s *Scheduler) Ticks() uint64 { return s.tick }

// Failed reports whether id is in the negative cache.
func (s *Scheduler) Failed(id uint32) bool {
	_, failed := s.failed[id]
	return failed
}

// Tick runs one discovery, heartbeat, eviction, update and render
// pass. It reports whether any instance rendered.
func (s *Scheduler) Tick(ctx context.Context) bool {
	count := s.directory.Count()
	switch layout.Classify(count) {
	case layout.DirectoryWriting:
		// The list is being rewritten; keep everything alive.
		s.registry.heartbeatAll(s.tick)
	case layout.DirectoryActive:
		s.ids = s.directory.AppendIDs(s.ids[:0], count)
		for _, id := range s.ids {
			if s.registry.heartbeat(id, s.tick) {
				continue
			}
			if _, failed := s.failed[id]; failed {
				continue
			}
			created, err := s.open(ctx, id, s.registry.Lookup)
			if err != nil {
				s.failed[id] = struct{}{}
				s.logger.Warn("failed to open instance", "instance", id, "error", err)
				continue
			}
			s.registry.add(created, s.tick)
			s.logger.Info("new instance", "instance", id)
		}
	}

	for _, stale := range s.registry.removeStale(s.tick) {
		s.logger.Info("closing instance", "instance", stale.ID())
		if err := stale.Close(); err != nil {
			s.logger.Warn("closing instance", "instance", stale.ID(), "error", err)
		}
	}

	rendered := false
	for _, live := range s.registry.live() {
		live.Update()
		if live.Render() {
			rendered = true
		}
	}

	if s.device != nil && (rendered || s.tick%flushEvery == 0) {
		if err := s.device.Flush(); err != nil {
			s.logger.Warn("device flush failed", "error", err)
		}
	}
	s.tick++
	return rendered
}

// Run paces ticks until the directory count goes negative or ctx is
// done, then closes every instance. The hard-exit sentinel calls the
// exiter with process.ExitTerminated and skips cleanup.
//
// A panic escaping a tick is returned as an error carrying
// process.ExitPanic.
func (s *Scheduler) Run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = process.WithCode(process.ExitPanic, fmt.Errorf("frame loop panic: %v", recovered))
		}
	}()

	s.started = s.clock.Now()
	s.startTick = s.tick
	s.window = statsWindow{tick: s.tick}
	s.logger.Info("frame loop started",
		"period", s.period,
		"timer", s.useTimer,
		"directory", s.directoryName,
	)
	if s.useTimer {
		s.runTimer(ctx)
	} else {
		s.runSleep(ctx)
	}
	return s.shutdown(ctx)
}

func (s *Scheduler) running(ctx context.Context) bool {
	return ctx.Err() == nil && s.directory.Count() >= 0
}

func (s *Scheduler) runTimer(ctx context.Context) {
	ticker := s.clock.NewTicker(s.period)
	defer ticker.Stop()
	for s.running(ctx) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.frame(ctx)
		s.verify()
	}
}

func (s *Scheduler) runSleep(ctx context.Context) {
	for s.running(ctx) {
		s.frame(ctx)
		timeout := s.verify()
		if timeout < minSleep {
			s.frame(ctx)
		}
		sleepStart := s.clock.Now()
		s.clock.Sleep(max(minSleep, timeout))
		s.sleepTime += s.clock.Now().Sub(sleepStart)
	}
}

// frame runs one tick and the engine step, accounting both.
func (s *Scheduler) frame(ctx context.Context) {
	tickStart := s.clock.Now()
	s.Tick(ctx)
	stepStart := s.clock.Now()
	s.tickTime += stepStart.Sub(tickStart)
	if s.step != nil {
		s.step()
		s.engineTime += s.clock.Now().Sub(stepStart)
	}
}

// verify compares the tick count with the schedule and returns the
// sleep timeout that brings the loop back on it. Statistics are
// reported every statusEvery ticks.
func (s *Scheduler) verify() time.Duration {
	actual := s.clock.Now().Sub(s.started)
	expected := time.Duration(s.tick-s.startTick) * s.period
	lag := math.Round(float64(expected-actual) / float64(time.Millisecond))
	timeout := slack + time.Duration(lag)*time.Millisecond
	s.lastTimeout = timeout

	if s.tick%s.statusEvery == 0 {
		s.report(actual)
	}
	return timeout
}

// frameStats averages the accounted times over the ticks since the
// last report.
func (s *Scheduler) frameStats(actual time.Duration) statusfile.FrameStats {
	ticks := s.tick - s.window.tick
	if ticks == 0 {
		return statusfile.FrameStats{}
	}
	perTick := func(total time.Duration) float64 {
		return float64(total) / float64(time.Millisecond) / float64(ticks)
	}
	return statusfile.FrameStats{
		Frame:  perTick(actual - s.window.elapsed),
		Tick:   perTick(s.tickTime),
		Engine: perTick(s.engineTime),
		Sleep:  perTick(s.sleepTime),
		Ticks:  ticks,
	}
}

func (s *Scheduler) report(actual time.Duration) {
	stats := s.frameStats(actual)
	s.logger.Info("frame statistics",
		"ticks", s.tick,
		"instances", s.registry.Len(),
		"frame_ms", round2(stats.Frame),
		"timeout", s.lastTimeout,
		"tick_ms", round2(stats.Tick),
		"engine_ms", round2(stats.Engine),
		"sleep_ms", round2(stats.Sleep),
	)
	if s.statusFile != "" {
		if err := statusfile.Write(s.statusFile, s.Snapshot(stats)); err != nil {
			s.logger.Warn("writing status file", "path", s.statusFile, "error", err)
		}
	}
	s.window = statsWindow{tick: s.tick, elapsed: actual}
	s.tickTime, s.engineTime, s.sleepTime = 0, 0, 0
}

// Snapshot returns the current host state with the given statistics.
func (s *Scheduler) Snapshot(stats statusfile.FrameStats) statusfile.Snapshot {
	failed := slices.Sorted(maps.Keys(s.failed))
	return statusfile.Snapshot{
		Version:   s.version,
		PID:       os.Getpid(),
		Directory: s.directoryName,
		Started:   s.started,
		Written:   s.clock.Now(),
		Tick:      s.tick,
		Frame:     stats,
		FailedIDs: failed,
		Instances: s.registry.Statuses(),
	}
}

// shutdown handles the end of the loop. The hard-exit sentinel leaves
// without cleanup; every other way out closes the instances newest
// first and waits briefly so engines can finish closing.
func (s *Scheduler) shutdown(ctx context.Context) error {
	count := s.directory.Count()
	s.logger.Info("frame loop stopping", "count", count, "ticks", s.tick, "context", ctx.Err())
	if layout.Classify(count) == layout.DirectoryHardExit {
		s.exit(process.ExitTerminated)
		return nil
	}
	s.CloseAll()
	s.clock.Sleep(shutdownDelay)
	if s.statusFile != "" {
		if err := statusfile.Clear(s.statusFile); err != nil {
			s.logger.Warn("removing status file", "path", s.statusFile, "error", err)
		}
	}
	return nil
}

// CloseAll tears down every instance, newest first.
func (s *Scheduler) CloseAll() {
	for _, live := range s.registry.removeAll() {
		if err := live.Close(); err != nil {
			s.logger.Warn("closing instance", "instance", live.ID(), "error", err)
		}
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
