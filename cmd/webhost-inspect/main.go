// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// webhost-inspect shows which instances a webhost process is running.
//
// It merges two sources: the directory segment the client writes
// (which ids are wanted) and the status file the host rewrites
// periodically (which ids are running, their URL, size and crash
// count). On a terminal it opens a live view that refreshes every
// --interval; otherwise, or with --plain, it prints one table and
// exits.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/webhost/lib/config"
	"github.com/bureau-foundation/webhost/lib/inspect"
	"github.com/bureau-foundation/webhost/lib/shm"
	"github.com/bureau-foundation/webhost/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	defaults := config.Default()

	var (
		statusFile string
		directory  string
		shmDir     string
		interval   time.Duration
		maxAge     time.Duration
		plain      bool
	)

	flagSet := pflag.NewFlagSet("webhost-inspect", pflag.ContinueOnError)
	flagSet.StringVar(&statusFile, "status-file", defaults.Status.File, "host status file")
	flagSet.StringVar(&directory, "directory", os.Getenv("ACCSPWB_KEY"), "directory segment name (default: the one in the status file)")
	flagSet.StringVar(&shmDir, "shm-dir", defaults.Directory.SegmentDirectory, "directory holding shared segments")
	flagSet.DurationVar(&interval, "interval", time.Second, "refresh interval of the live view")
	flagSet.DurationVar(&maxAge, "max-age", 30*time.Second, "status file age reported as stale (0 disables)")
	flagSet.BoolVar(&plain, "plain", false, "print one table and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("webhost-inspect %s\n", version.Info())
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

	load := func() inspect.Report {
		return inspect.Collect(inspect.Options{
			StatusFile: statusFile,
			MaxAge:     maxAge,
			Namespace:  shm.Namespace{Directory: shmDir},
			Directory:  directory,
		})
	}

	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		report := load()
		if err := inspect.WriteTable(os.Stdout, report); err != nil {
			return err
		}
		if len(report.Problems) > 0 && !report.HasSnapshot && !report.DirectoryFound {
			return errors.New("nothing to inspect")
		}
		return nil
	}

	program := tea.NewProgram(inspect.NewModel(load, interval), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `webhost-inspect shows the instances of a running webhost.

Usage:
  webhost-inspect [flags]

Flags:
`)
	flagSet.PrintDefaults()
}
