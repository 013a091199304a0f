// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderScrollbar draws a one-column scrollbar of height rows for a
// list of total rows of which visible are shown from offset.
func renderScrollbar(theme Theme, height, total, visible, offset int) string {
	if height <= 0 {
		return ""
	}
	track := lipgloss.NewStyle().Foreground(theme.BorderColor).Render("│")
	thumb := lipgloss.NewStyle().Foreground(theme.Accent).Render("┃")

	lines := make([]string, height)
	if total <= visible || total <= 0 {
		for index := range lines {
			lines[index] = thumb
		}
		return strings.Join(lines, "\n")
	}

	thumbSize := max(1, height*visible/total)
	thumbOffset := 0
	if scrollable, trackRange := total-visible, height-thumbSize; trackRange > 0 {
		thumbOffset = min(offset*trackRange/scrollable, trackRange)
	}
	for index := range lines {
		if index >= thumbOffset && index < thumbOffset+thumbSize {
			lines[index] = thumb
		} else {
			lines[index] = track
		}
	}
	return strings.Join(lines, "\n")
}
