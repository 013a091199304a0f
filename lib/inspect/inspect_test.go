// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/webhost/lib/layout"
	"github.com/bureau-foundation/webhost/lib/statusfile"
	"github.com/bureau-foundation/webhost/lib/testutil"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func writeFixture(t *testing.T, written time.Time) Options {
	t.Helper()
	namespace := testutil.Namespace(t)
	segment, err := namespace.Create("webhost.directory", layout.DirectorySize)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer segment.Close()
	directory, err := layout.NewDirectory(segment.Bytes())
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	if err := directory.SetIDs([]uint32{1, 2, 5}); err != nil {
		t.Fatalf("SetIDs: %v", err)
	}

	statusPath := filepath.Join(t.TempDir(), "status.json")
	err = statusfile.Write(statusPath, statusfile.Snapshot{
		Version:   "1.0.0",
		PID:       4321,
		Directory: "webhost.directory",
		Written:   written,
		Tick:      8192,
		Frame:     statusfile.FrameStats{Frame: 16.6, Tick: 1.2, Engine: 0.4, Sleep: 14.9, Ticks: 4096},
		FailedIDs: []uint32{5},
		Instances: []statusfile.Instance{
			{ID: 1, Segment: "AcTools.CSP.Limited.CEF.v0.1", Limited: true, Passthrough: true, Width: 640, Height: 480, URL: "https://example.org/"},
			{ID: 2, Segment: "AcTools.CSP.CEF.v0.2", Width: 320, Height: 200, Loading: true},
			{ID: 3, Segment: "AcTools.CSP.Limited.CEF.v0.3", Limited: true, Crashes: 2},
		},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	return Options{
		StatusFile: statusPath,
		MaxAge:     time.Minute,
		Namespace:  namespace,
		Now:        func() time.Time { return testNow },
	}
}

func TestCollectMergesDirectoryAndStatus(t *testing.T) {
	report := Collect(writeFixture(t, testNow.Add(-time.Second)))

	if len(report.Problems) != 0 {
		t.Fatalf("problems = %v", report.Problems)
	}
	if !report.HasSnapshot || report.Stale {
		t.Errorf("snapshot = %v, stale = %v, want fresh snapshot", report.HasSnapshot, report.Stale)
	}
	if !report.DirectoryFound || report.DirectoryState != layout.DirectoryActive || report.DirectoryCount != 3 {
		t.Errorf("directory = found %v state %v count %d", report.DirectoryFound, report.DirectoryState, report.DirectoryCount)
	}

	type summary struct {
		id      uint32
		listed  bool
		running bool
		failed  bool
		state   State
	}
	want := []summary{
		{1, true, true, false, StateReady},
		{2, true, true, false, StateLoading},
		{3, false, true, false, StateCrashing},
		{5, true, false, true, StateMissing},
	}
	if len(report.Rows) != len(want) {
		t.Fatalf("rows = %+v, want %d rows", report.Rows, len(want))
	}
	for index, row := range report.Rows {
		got := summary{row.ID, row.Listed, row.Running, row.Failed, row.State()}
		if got != want[index] {
			t.Errorf("row %d = %+v, want %+v", index, got, want[index])
		}
	}
}

func TestCollectReportsStaleAndMissing(t *testing.T) {
	options := writeFixture(t, testNow.Add(-time.Hour))
	if report := Collect(options); !report.Stale {
		t.Error("hour-old status file not reported stale")
	}

	if err := os.Remove(options.StatusFile); err != nil {
		t.Fatal(err)
	}
	options.Directory = "absent"
	report := Collect(options)
	if report.HasSnapshot || report.DirectoryFound {
		t.Errorf("report = %+v, want nothing found", report)
	}
	if len(report.Problems) != 2 {
		t.Errorf("problems = %q, want two", report.Problems)
	}
}

func TestWriteTable(t *testing.T) {
	report := Collect(writeFixture(t, testNow.Add(-2*time.Second)))
	var buffer bytes.Buffer
	if err := WriteTable(&buffer, report); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	output := buffer.String()
	for _, want := range []string{
		"directory webhost.directory: active (count 3)",
		"host 1.0.0 pid 4321 tick 8192, written 2s ago",
		"frame 16.60 ms",
		"640x480",
		"https://example.org/",
		"crashing (unlisted)",
		"failed",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("table missing %q:\n%s", want, output)
		}
	}
}

func newTestModel(t *testing.T, options Options) Model {
	t.Helper()
	model := NewModel(func() Report { return Collect(options) }, time.Second)
	model.now = func() time.Time { return testNow }
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return updated.(Model)
}

func TestModelShowsReport(t *testing.T) {
	options := writeFixture(t, testNow)
	model := newTestModel(t, options)
	if view := model.View(); !strings.Contains(view, "reading host state") {
		t.Errorf("view before the first report = %q", view)
	}

	updated, command := model.Update(reportMsg{report: Collect(options)})
	model = updated.(Model)
	if command == nil {
		t.Error("no refresh scheduled after a report")
	}
	view := model.View()
	for _, want := range []string{"webhost", "directory webhost.directory", "tick 8192", "limited", "AcTools.CSP.Limited.CEF.v0.1"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelNavigation(t *testing.T) {
	options := writeFixture(t, testNow)
	model := newTestModel(t, options)
	updated, _ := model.Update(reportMsg{report: Collect(options)})
	model = updated.(Model)

	press := func(message tea.KeyMsg) {
		updated, _ := model.Update(message)
		model = updated.(Model)
	}
	press(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	press(tea.KeyMsg{Type: tea.KeyDown})
	if id, _ := model.selectedID(); id != 3 {
		t.Errorf("selected = %d, want 3", id)
	}
	press(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	if id, _ := model.selectedID(); id != 5 {
		t.Errorf("selected after end = %d, want 5", id)
	}
	press(tea.KeyMsg{Type: tea.KeyDown})
	if id, _ := model.selectedID(); id != 5 {
		t.Errorf("selected past the end = %d, want 5", id)
	}

	// With the detail pane focused the list cursor stays put.
	press(tea.KeyMsg{Type: tea.KeyTab})
	press(tea.KeyMsg{Type: tea.KeyUp})
	if id, _ := model.selectedID(); id != 5 {
		t.Errorf("selected with detail focus = %d, want 5", id)
	}

	_, command := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if command == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := command().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestModelKeepsSelectionAndGlows(t *testing.T) {
	options := writeFixture(t, testNow)
	model := newTestModel(t, options)
	first := Collect(options)
	updated, _ := model.Update(reportMsg{report: first})
	model = updated.(Model)
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	model = updated.(Model)

	// Instance 1 goes away; instance 2 stays selected.
	second := first
	second.Rows = append([]Row(nil), first.Rows[1:]...)
	updated, _ = model.Update(reportMsg{report: second})
	model = updated.(Model)

	if id, _ := model.selectedID(); id != 2 {
		t.Errorf("selected = %d, want 2", id)
	}
	if heat, kind := model.heat.Heat(1, testNow); heat != 1 || kind != HeatVanished {
		t.Errorf("heat of closed instance = %v, %v, want 1, vanished", heat, kind)
	}
	if !model.heatTicking {
		t.Error("heat animation not started")
	}
}

func TestHeatDecays(t *testing.T) {
	tracker := NewHeatTracker()
	tracker.Ignite(4, HeatAppeared, testNow)

	if heat, _ := tracker.Heat(4, testNow.Add(HeatDecayDuration/2)); heat != 0.5 {
		t.Errorf("heat at half decay = %v, want 0.5", heat)
	}
	if !tracker.HasHot(testNow.Add(time.Second)) {
		t.Error("HasHot = false during decay")
	}
	if tracker.HasHot(testNow.Add(HeatDecayDuration)) {
		t.Error("HasHot = true after decay")
	}
	if heat, _ := tracker.Heat(4, testNow); heat != 0 {
		t.Errorf("heat after collection = %v, want 0", heat)
	}
}

func TestScrollbar(t *testing.T) {
	lines := strings.Split(renderScrollbar(DefaultTheme, 10, 100, 10, 90), "\n")
	if len(lines) != 10 {
		t.Fatalf("scrollbar height = %d, want 10", len(lines))
	}
	if !strings.Contains(lines[9], "┃") || strings.Contains(lines[0], "┃") {
		t.Errorf("thumb not at the bottom: %q", lines)
	}
}
