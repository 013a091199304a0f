// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteTable prints report as aligned plain text.
func WriteTable(w io.Writer, report Report) error {
	if err := writeSummary(w, report); err != nil {
		return err
	}
	if len(report.Rows) == 0 {
		_, err := fmt.Fprintln(w, "no instances")
		return err
	}

	table := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(table, "ID\tTIER\tSTATE\tSIZE\tMODE\tQUEUED\tCRASHES\tURL")
	for _, row := range report.Rows {
		status := row.Status
		state := string(row.State())
		if row.Failed {
			state = "failed"
		} else if !row.Listed && row.Running {
			state += " (unlisted)"
		}
		fmt.Fprintf(table, "%d\t%s\t%s\t%s\t%s\t%d/%d\t%d\t%s\n",
			row.ID,
			tierName(row),
			state,
			sizeText(row),
			modeName(row),
			status.PendingEvents, status.PendingReplies,
			status.Crashes,
			status.URL,
		)
	}
	return table.Flush()
}

func writeSummary(w io.Writer, report Report) error {
	for _, problem := range report.Problems {
		if _, err := fmt.Fprintf(w, "warning: %s\n", problem); err != nil {
			return err
		}
	}
	if report.DirectoryName != "" {
		state := "absent"
		if report.DirectoryFound {
			state = fmt.Sprintf("%s (count %d)", report.DirectoryState, report.DirectoryCount)
		}
		if _, err := fmt.Fprintf(w, "directory %s: %s\n", report.DirectoryName, state); err != nil {
			return err
		}
	}
	if !report.HasSnapshot {
		return nil
	}
	snapshot := report.Snapshot
	age := report.Collected.Sub(snapshot.Written).Round(time.Second)
	stale := ""
	if report.Stale {
		stale = " STALE"
	}
	_, err := fmt.Fprintf(w, "host %s pid %d tick %d, written %s ago%s\nframe %.2f ms (tick %.2f, engine %.2f, sleep %.2f) over %d ticks\n",
		snapshot.Version, snapshot.PID, snapshot.Tick, age, stale,
		snapshot.Frame.Frame, snapshot.Frame.Tick, snapshot.Frame.Engine, snapshot.Frame.Sleep, snapshot.Frame.Ticks,
	)
	return err
}

func tierName(row Row) string {
	if !row.Running {
		return "-"
	}
	if row.Status.Limited {
		return "limited"
	}
	return "full"
}

func modeName(row Row) string {
	if !row.Running {
		return "-"
	}
	if row.Status.Passthrough {
		return "passthrough"
	}
	return "composited"
}

func sizeText(row Row) string {
	if !row.Running {
		return "-"
	}
	return fmt.Sprintf("%dx%d", row.Status.Width, row.Status.Height)
}
