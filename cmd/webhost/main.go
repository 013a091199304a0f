// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// webhost hosts embedded browser instances for a client that drives
// them through shared memory.
//
// The client names a directory segment (ACCSPWB_KEY or --key) listing
// the ids of the instances it wants. Each id maps to an instance
// segment the client created; webhost opens it, starts a browser and
// exchanges commands, responses and frame handles with the client once
// per tick until the id leaves the directory.
//
// Configuration comes from the YAML file named by --config or
// WEBHOST_CONFIG, then the ACCSPWB_* environment variables, then
// flags. Exit codes are documented in lib/process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/webhost/lib/clock"
	"github.com/bureau-foundation/webhost/lib/config"
	"github.com/bureau-foundation/webhost/lib/engine"
	"github.com/bureau-foundation/webhost/lib/engine/playwright"
	"github.com/bureau-foundation/webhost/lib/gpu"
	"github.com/bureau-foundation/webhost/lib/instance"
	"github.com/bureau-foundation/webhost/lib/layout"
	"github.com/bureau-foundation/webhost/lib/logging"
	"github.com/bureau-foundation/webhost/lib/process"
	"github.com/bureau-foundation/webhost/lib/scheduler"
	"github.com/bureau-foundation/webhost/lib/shm"
	"github.com/bureau-foundation/webhost/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fail(err)
	}
}

type flags struct {
	configPath string
	key        string
	engineKind string
	targetFPS  int
	useTimer   bool
	logLevel   string
	statusFile string
}

func run() error {
	var options flags

	flagSet := pflag.NewFlagSet("webhost", pflag.ContinueOnError)
	flagSet.StringVar(&options.configPath, "config", "", "YAML configuration file (default: $WEBHOST_CONFIG)")
	flagSet.StringVar(&options.key, "key", "", "directory segment name (overrides ACCSPWB_KEY)")
	flagSet.StringVar(&options.engineKind, "engine", "", "browser engine: playwright or fake")
	flagSet.IntVar(&options.targetFPS, "fps", 0, "tick rate (overrides ACCSPWB_TARGET_FPS)")
	flagSet.BoolVar(&options.useTimer, "use-timer", false, "pace ticks from a periodic timer")
	flagSet.StringVar(&options.logLevel, "log-level", "", "debug, info, warn or error")
	flagSet.StringVar(&options.statusFile, "status-file", "", "status snapshot path (\"-\" disables it)")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("webhost %s\n", version.Full())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(options, flagSet)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Journal: cfg.Logging.Journal,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

func loadConfig(options flags, flagSet *pflag.FlagSet) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if options.configPath != "" {
		cfg, err = config.LoadFile(options.configPath)
		if err == nil {
			err = cfg.ApplyEnvironment(os.LookupEnv)
		}
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if flagSet.Changed("key") {
		cfg.Directory.Key = options.key
	}
	if flagSet.Changed("engine") {
		cfg.Engine.Kind = options.engineKind
	}
	if flagSet.Changed("fps") {
		cfg.Pacing.TargetFPS = options.targetFPS
	}
	if flagSet.Changed("use-timer") {
		cfg.Pacing.UseTimer = options.useTimer
	}
	if flagSet.Changed("log-level") {
		cfg.Logging.Level = options.logLevel
	}
	if flagSet.Changed("status-file") {
		cfg.Status.File = options.statusFile
		if options.statusFile == "-" {
			cfg.Status.File = ""
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	namespace := shm.Namespace{Directory: cfg.Directory.SegmentDirectory}

	directorySegment, err := namespace.Create(cfg.Directory.Key, layout.DirectorySize)
	if err != nil {
		return process.WithCode(process.ExitNamedObject, fmt.Errorf("creating directory segment: %w", err))
	}
	defer directorySegment.Close()
	directory, err := layout.NewDirectory(directorySegment.Bytes())
	if err != nil {
		return process.WithCode(process.ExitNamedObject, err)
	}

	device, err := gpu.NewDevice(gpu.Config{
		Namespace:       namespace,
		HandleNamespace: cfg.GPU.HandleNamespace,
		Adapter:         cfg.GPU.Adapter,
		Logger:          logger.With("component", "gpu"),
	})
	if err != nil {
		return process.WithCode(process.ExitFatal, fmt.Errorf("initializing device: %w", err))
	}
	defer device.Close()

	factory, closeFactory, err := newFactory(cfg, logger)
	if err != nil {
		return process.WithCode(process.ExitFatal, err)
	}
	defer closeFactory()

	frameClock := clock.Real()
	open := scheduler.InstanceOpener(scheduler.InstanceOptions{
		Namespace: namespace,
		Access:    cfg.Access,
		Device:    device,
		Factory:   factory,
		Defaults: instance.Defaults{
			UserAgent:       cfg.Engine.UserAgent,
			AcceptLanguages: cfg.Engine.AcceptLanguages,
			DataDirectory:   cfg.Engine.DataDirectory,
		},
		Clock:  frameClock,
		Logger: logger,
	})

	loop, err := scheduler.New(scheduler.Options{
		Directory:     directory,
		DirectoryName: cfg.Directory.Key,
		Open:          open,
		Device:        device,
		Period:        cfg.Pacing.Period(),
		UseTimer:      cfg.Pacing.UseTimer,
		StatusFile:    cfg.Status.File,
		StatusEvery:   cfg.Status.EveryTicks,
		Version:       version.Info(),
		Clock:         frameClock,
		Logger:        logger,
	})
	if err != nil {
		return process.WithCode(process.ExitFatal, err)
	}

	logger.Info("webhost started",
		"version", version.Info(),
		"directory", cfg.Directory.Key,
		"engine", cfg.Engine.Kind,
		"fps", cfg.Pacing.TargetFPS,
		"use_timer", cfg.Pacing.UseTimer,
	)
	if err := loop.Run(ctx); err != nil {
		return err
	}
	logger.Info("webhost stopped", "ticks", loop.Ticks())
	return nil
}

// newFactory returns the configured engine and a function releasing
// it.
func newFactory(cfg *config.Config, logger *slog.Logger) (engine.Factory, func(), error) {
	switch cfg.Engine.Kind {
	case config.EngineFake:
		return &engine.FakeFactory{}, func() {}, nil
	case config.EnginePlaywright:
		interval, err := cfg.CaptureInterval()
		if err != nil {
			return nil, nil, err
		}
		factory := playwright.New(playwright.Config{
			Install:         cfg.Engine.Install,
			Headful:         cfg.Engine.Headful,
			Args:            cfg.Engine.Args,
			CaptureInterval: interval,
			Logger:          logger.With("component", "playwright"),
		})
		return factory, func() {
			if err := factory.Close(); err != nil {
				logger.Warn("closing browser engine", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown engine %q", cfg.Engine.Kind)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `webhost hosts embedded browser instances driven through shared memory.

Usage:
  webhost [flags]

The directory segment name is required, from --key or ACCSPWB_KEY.

Flags:
`)
	flagSet.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  WEBHOST_CONFIG            YAML configuration file
  ACCSPWB_KEY               directory segment name
  ACCSPWB_USE_TIMER         1 paces ticks from a timer
  ACCSPWB_TARGET_FPS        tick rate (default 60)
  ACCSPWB_D3D_DEVICE        device adapter hint
  ACCSPWB_DATA_DIRECTORY    persistent browser profiles
  ACCSPWB_LOG_FILENAME      JSON log file
  ACCSPWB_USER_AGENT        default user agent
  ACCSPWB_ACCEPT_LANGUAGES  default accept-language list
`)
}
