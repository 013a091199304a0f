// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/webhost/lib/statusfile"
)

// Theme is the inspector palette. Colors are ANSI 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Instance states.
	StateReady     lipgloss.Color
	StateLoading   lipgloss.Color
	StateHidden    lipgloss.Color
	StateSuspended lipgloss.Color
	StateCrashing  lipgloss.Color
	StateMissing   lipgloss.Color

	// Access tiers.
	TierFull    lipgloss.Color
	TierLimited lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	Accent           lipgloss.Color

	// Row tints for instances that just appeared or went away.
	HotAccentPut    lipgloss.Color
	HotAccentRemove lipgloss.Color
}

// State names an instance condition for display.
type State string

const (
	StateReady     State = "ready"
	StateLoading   State = "loading"
	StateHidden    State = "hidden"
	StateSuspended State = "suspended"
	StateCrashing  State = "crashing"

	// StateMissing marks a listed id the host runs no instance for.
	StateMissing State = "missing"
)

// StateOf classifies an instance status. Crashes win over everything
// else since they are what an operator looks for first.
func StateOf(status statusfile.Instance) State {
	switch {
	case status.Crashes > 0:
		return StateCrashing
	case status.Suspended:
		return StateSuspended
	case status.Loading:
		return StateLoading
	case status.Hidden:
		return StateHidden
	default:
		return StateReady
	}
}

// StateColor returns the color of state.
func (theme Theme) StateColor(state State) lipgloss.Color {
	switch state {
	case StateReady:
		return theme.StateReady
	case StateLoading:
		return theme.StateLoading
	case StateHidden:
		return theme.StateHidden
	case StateSuspended:
		return theme.StateSuspended
	case StateCrashing:
		return theme.StateCrashing
	case StateMissing:
		return theme.StateMissing
	default:
		return theme.FaintText
	}
}

// TierColor returns the color of an access tier.
func (theme Theme) TierColor(limited bool) lipgloss.Color {
	if limited {
		return theme.TierLimited
	}
	return theme.TierFull
}

// DefaultTheme targets 256-color terminals with a dark background.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	StateReady:     lipgloss.Color("114"), // green
	StateLoading:   lipgloss.Color("220"), // amber
	StateHidden:    lipgloss.Color("245"), // gray
	StateSuspended: lipgloss.Color("141"), // light purple
	StateCrashing:  lipgloss.Color("196"), // red
	StateMissing:   lipgloss.Color("208"), // orange

	TierFull:    lipgloss.Color("75"),
	TierLimited: lipgloss.Color("180"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	Accent:           lipgloss.Color("220"),

	HotAccentPut:    lipgloss.Color("58"),
	HotAccentRemove: lipgloss.Color("52"),
}
