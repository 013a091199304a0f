// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
	"golang.org/x/term"
)

// Options configure New.
type Options struct {
	// Level is debug, info, warn or error. Empty means info.
	Level string

	// File, when set, receives JSON records. The file is appended to.
	File string

	// Journal enables the systemd journal sink when running as a
	// service.
	Journal bool

	// Stderr defaults to os.Stderr.
	Stderr io.Writer

	// CgroupFile defaults to /proc/self/cgroup.
	CgroupFile string
}

// ParseLevel converts a level name.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", name, err)
	}
	return level, nil
}

// New returns the process logger and a function that closes its file
// sink.
func New(options Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(options.Level)
	if err != nil {
		return nil, nil, err
	}
	stderr := options.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	handlerOptions := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	var warnings []string
	closeFile := func() error { return nil }

	service := options.Journal && runningAsService(options.CgroupFile)
	if service {
		journal, err := slogjournal.NewHandler(&slogjournal.Options{
			ReplaceGroup: toJournalKey,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				attr.Key = toJournalKey(attr.Key)
				return attr
			},
		})
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("systemd journal unavailable: %v", err))
			service = false
		} else {
			handlers = append(handlers, leveled{Handler: journal, level: level})
		}
	}
	if !service {
		if isTerminal(stderr) {
			handlers = append(handlers, slog.NewTextHandler(stderr, handlerOptions))
		} else {
			handlers = append(handlers, slog.NewJSONHandler(stderr, handlerOptions))
		}
	}

	if options.File != "" {
		file, err := os.OpenFile(options.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(file, handlerOptions))
		closeFile = file.Close
	}

	logger := slog.New(slogmulti.Fanout(handlers...))
	for _, warning := range warnings {
		logger.Warn(warning)
	}
	return logger, closeFile, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// runningAsService reports whether the process cgroup is a systemd
// service unit.
func runningAsService(cgroupFile string) bool {
	if cgroupFile == "" {
		cgroupFile = "/proc/self/cgroup"
	}
	content, err := os.ReadFile(cgroupFile)
	if err != nil {
		return false
	}
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		parts := strings.SplitN(line, ":", 3)
		if len(parts) == 3 && strings.HasSuffix(path.Base(parts[2]), ".service") {
			return true
		}
	}
	return false
}

func toJournalKey(key string) string {
	key = strings.ToUpper(key)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, key)
}

// leveled drops records below level before they reach Handler.
type leveled struct {
	slog.Handler
	level slog.Leveler
}

func (h leveled) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.Handler.Enabled(ctx, level)
}

func (h leveled) WithAttrs(attrs []slog.Attr) slog.Handler {
	return leveled{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h leveled) WithGroup(name string) slog.Handler {
	return leveled{Handler: h.Handler.WithGroup(name), level: h.level}
}
