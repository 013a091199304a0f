// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Loader produces a fresh report. It runs outside the bubbletea event
// loop.
type Loader func() Report

type focusRegion int

const (
	focusList focusRegion = iota
	focusDetail
)

// headerLines is the height of the summary above the panes; one more
// line at the bottom holds the help.
const headerLines = 3

type reportMsg struct{ report Report }

type refreshTickMsg struct{}

type heatTickMsg struct{}

// Model is the interactive inspector.
type Model struct {
	load     Loader
	interval time.Duration
	now      func() time.Time

	theme Theme
	keys  KeyMap
	help  help.Model

	report Report
	loaded bool
	heat   *HeatTracker

	cursor int
	offset int
	focus  focusRegion
	detail viewport.Model

	width, height int
	heatTicking   bool
}

// NewModel returns a Model that calls load every interval.
func NewModel(load Loader, interval time.Duration) Model {
	if interval <= 0 {
		interval = time.Second
	}
	return Model{
		load:     load,
		interval: interval,
		now:      time.Now,
		theme:    DefaultTheme,
		keys:     DefaultKeyMap,
		help:     help.New(),
		heat:     NewHeatTracker(),
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return model.refresh()
}

func (model Model) refresh() tea.Cmd {
	load := model.load
	return func() tea.Msg { return reportMsg{report: load()} }
}

func (model Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(model.interval, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

func scheduleHeatTick() tea.Cmd {
	return tea.Tick(heatTickInterval, func(time.Time) tea.Msg { return heatTickMsg{} })
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		return model.handleKey(message)

	case tea.WindowSizeMsg:
		model.width, model.height = message.Width, message.Height
		model.layout()
		return model, nil

	case reportMsg:
		return model.applyReport(message.report)

	case refreshTickMsg:
		return model, model.refresh()

	case heatTickMsg:
		if model.heat.HasHot(model.now()) {
			return model, scheduleHeatTick()
		}
		model.heatTicking = false
		return model, nil
	}
	return model, nil
}

func (model Model) applyReport(report Report) (tea.Model, tea.Cmd) {
	if model.loaded {
		model.heat.Diff(model.report.Running(), report.Running(), model.now())
	}
	selected, hadSelection := model.selectedID()
	model.report = report
	model.loaded = true

	// Keep the same instance selected when rows shift.
	if hadSelection {
		for index, row := range report.Rows {
			if row.ID == selected {
				model.cursor = index
				break
			}
		}
	}
	model.clampCursor()
	model.renderDetail()

	commands := []tea.Cmd{model.scheduleRefresh()}
	if !model.heatTicking && model.heat.HasHot(model.now()) {
		model.heatTicking = true
		commands = append(commands, scheduleHeatTick())
	}
	return model, tea.Batch(commands...)
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit
	case key.Matches(message, model.keys.Refresh):
		return model, model.refresh()
	case key.Matches(message, model.keys.FocusToggle):
		if model.focus == focusList {
			model.focus = focusDetail
		} else {
			model.focus = focusList
		}
		return model, nil
	}

	if model.focus == focusDetail {
		offset := model.detail.YOffset
		switch {
		case key.Matches(message, model.keys.Up):
			offset--
		case key.Matches(message, model.keys.Down):
			offset++
		case key.Matches(message, model.keys.PageUp):
			offset -= model.detail.Height
		case key.Matches(message, model.keys.PageDown):
			offset += model.detail.Height
		case key.Matches(message, model.keys.Home):
			offset = 0
		case key.Matches(message, model.keys.End):
			offset = model.detail.TotalLineCount()
		}
		model.detail.SetYOffset(offset)
		return model, nil
	}

	previous := model.cursor
	switch {
	case key.Matches(message, model.keys.Up):
		model.cursor--
	case key.Matches(message, model.keys.Down):
		model.cursor++
	case key.Matches(message, model.keys.PageUp):
		model.cursor -= model.listHeight()
	case key.Matches(message, model.keys.PageDown):
		model.cursor += model.listHeight()
	case key.Matches(message, model.keys.Home):
		model.cursor = 0
	case key.Matches(message, model.keys.End):
		model.cursor = len(model.report.Rows) - 1
	}
	model.clampCursor()
	if model.cursor != previous {
		model.renderDetail()
		model.detail.GotoTop()
	}
	return model, nil
}

func (model Model) selectedID() (uint32, bool) {
	if model.cursor < 0 || model.cursor >= len(model.report.Rows) {
		return 0, false
	}
	return model.report.Rows[model.cursor].ID, true
}

func (model *Model) clampCursor() {
	model.cursor = max(0, min(model.cursor, len(model.report.Rows)-1))
	height := model.listHeight()
	if model.cursor < model.offset {
		model.offset = model.cursor
	}
	if height > 0 && model.cursor >= model.offset+height {
		model.offset = model.cursor - height + 1
	}
	model.offset = max(0, model.offset)
}

func (model Model) listWidth() int {
	return max(24, model.width*11/20)
}

func (model Model) listHeight() int {
	return max(1, model.height-headerLines-1)
}

func (model *Model) layout() {
	model.detail.Width = max(10, model.width-model.listWidth()-1)
	model.detail.Height = model.listHeight()
	model.help.Width = model.width
	model.clampCursor()
	model.renderDetail()
}

// renderDetail fills the detail pane from the selected row.
func (model *Model) renderDetail() {
	if model.cursor < 0 || model.cursor >= len(model.report.Rows) {
		model.detail.SetContent("")
		return
	}
	row := model.report.Rows[model.cursor]
	label := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	var body strings.Builder
	line := func(name string, value any) {
		fmt.Fprintf(&body, "%s %v\n", label.Render(fmt.Sprintf("%-10s", name)), value)
	}

	line("id", row.ID)
	line("state", lipgloss.NewStyle().Foreground(model.theme.StateColor(row.State())).Render(string(row.State())))
	line("listed", row.Listed)
	if row.Failed {
		line("open", "failed, not retried")
	}
	if row.Running {
		status := row.Status
		line("segment", status.Segment)
		line("tier", lipgloss.NewStyle().Foreground(model.theme.TierColor(status.Limited)).Render(tierName(row)))
		line("mode", modeName(row))
		line("size", sizeText(row))
		if status.UUID != 0 {
			line("uuid", status.UUID)
		}
		line("title", status.Title)
		line("url", status.URL)
		line("hidden", status.Hidden)
		line("suspended", status.Suspended)
		line("queued", fmt.Sprintf("%d events, %d replies", status.PendingEvents, status.PendingReplies))
		line("crashes", status.Crashes)
	}
	model.detail.SetContent(ansi.Wordwrap(body.String(), max(10, model.detail.Width), " /"))
}

// View implements tea.Model.
func (model Model) View() string {
	if model.width == 0 {
		return ""
	}
	if !model.loaded {
		return lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("reading host state…")
	}

	divider := strings.TrimRight(strings.Repeat("│\n", model.listHeight()), "\n")
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		model.renderList(),
		lipgloss.NewStyle().Foreground(model.theme.BorderColor).Render(divider),
		model.detail.View(),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		model.renderHeader(),
		panes,
		model.help.View(model.keys),
	)
}

func (model Model) renderHeader() string {
	report := model.report
	title := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)

	directory := "directory: none"
	if report.DirectoryName != "" {
		directory = fmt.Sprintf("directory %s", report.DirectoryName)
		if report.DirectoryFound {
			directory += fmt.Sprintf(" %s, %d listed", report.DirectoryState, max(0, min(report.DirectoryCount, 255)))
		} else {
			directory += " absent"
		}
	}
	host := "host: no status"
	if report.HasSnapshot {
		snapshot := report.Snapshot
		host = fmt.Sprintf("host %s pid %d tick %d  frame %.2f ms  engine %.2f  sleep %.2f",
			snapshot.Version, snapshot.PID, snapshot.Tick, snapshot.Frame.Frame, snapshot.Frame.Engine, snapshot.Frame.Sleep)
		if report.Stale {
			host += lipgloss.NewStyle().Foreground(model.theme.StateCrashing).Render("  STALE")
		}
	}
	problems := ""
	if len(report.Problems) > 0 {
		problems = lipgloss.NewStyle().Foreground(model.theme.StateMissing).Render(report.Problems[0])
	}
	lines := []string{
		title.Render("webhost") + "  " + faint.Render(directory),
		ansi.Truncate(host, model.width, "…"),
		ansi.Truncate(problems, model.width, "…"),
	}
	return strings.Join(lines, "\n")
}

func (model Model) renderList() string {
	width := model.listWidth() - 1
	height := model.listHeight()
	rows := model.report.Rows
	now := model.now()

	lines := make([]string, 0, height)
	for index := model.offset; index < len(rows) && len(lines) < height; index++ {
		lines = append(lines, model.renderRow(rows[index], index == model.cursor, width, now))
	}
	if len(rows) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("no instances"))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	list := lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
	scrollbar := renderScrollbar(model.theme, height, len(rows), height, model.offset)
	return lipgloss.JoinHorizontal(lipgloss.Top, list, scrollbar)
}

func (model Model) renderRow(row Row, selected bool, width int, now time.Time) string {
	state := row.State()
	stateStyle := lipgloss.NewStyle().Foreground(model.theme.StateColor(state))
	text := row.Status.Title
	if text == "" {
		text = row.Status.URL
	}
	line := fmt.Sprintf("%5d %-8s %s %s", row.ID, tierName(row), stateStyle.Render(fmt.Sprintf("%-9s", state)), text)
	line = ansi.Truncate(line, width, "…")

	style := lipgloss.NewStyle().Width(width)
	if heat, kind := model.heat.Heat(row.ID, now); heat > 0 {
		if kind == HeatVanished {
			style = style.Background(model.theme.HotAccentRemove)
		} else {
			style = style.Background(model.theme.HotAccentPut)
		}
	}
	if selected {
		style = style.Background(model.theme.SelectedBackground).Foreground(model.theme.SelectedForeground)
		if model.focus == focusList {
			style = style.Bold(true)
		}
	}
	return style.Render(line)
}
