// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"fmt"
	"slices"
	"time"

	"github.com/bureau-foundation/webhost/lib/layout"
	"github.com/bureau-foundation/webhost/lib/shm"
	"github.com/bureau-foundation/webhost/lib/statusfile"
)

// Options select what Collect reads.
type Options struct {
	// StatusFile is the scheduler status file.
	StatusFile string

	// MaxAge is how old the status file may be before the report
	// calls it stale. Zero disables the check.
	MaxAge time.Duration

	// Namespace and Directory locate the directory segment. An empty
	// Directory uses the name recorded in the status file.
	Namespace shm.Namespace
	Directory string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Row is one instance id seen in the directory, the status file or
// both.
type Row struct {
	ID uint32

	// Listed means the client lists the id in the directory.
	Listed bool

	// Running means the host reported an instance for it.
	Running bool

	// Failed means the host could not open the id and will not retry.
	Failed bool

	Status statusfile.Instance
}

// State classifies the row for display.
func (row Row) State() State {
	if !row.Running {
		return StateMissing
	}
	return StateOf(row.Status)
}

// Report is one inspection result.
type Report struct {
	Collected time.Time

	Snapshot    statusfile.Snapshot
	HasSnapshot bool

	// Stale is set when the status file is older than MaxAge.
	Stale bool

	DirectoryName  string
	DirectoryFound bool
	DirectoryState layout.DirectoryState
	DirectoryCount int32

	Rows []Row

	// Problems are read failures worth showing to the operator.
	Problems []string
}

// Collect reads the status file and the directory segment. Read
// failures are recorded in Problems rather than returned so a partial
// report can still be shown.
func Collect(options Options) Report {
	now := time.Now
	if options.Now != nil {
		now = options.Now
	}
	report := Report{Collected: now()}

	if options.StatusFile != "" {
		maxAge := options.MaxAge
		if maxAge <= 0 {
			maxAge = time.Duration(1<<63 - 1)
		}
		snapshot, fresh, err := statusfile.Check(options.StatusFile, maxAge, report.Collected)
		switch {
		case err != nil:
			report.Problems = append(report.Problems, err.Error())
		case snapshot.PID != 0:
			report.Snapshot = snapshot
			report.HasSnapshot = true
			report.Stale = !fresh
		default:
			report.Problems = append(report.Problems, fmt.Sprintf("no status file at %s", options.StatusFile))
		}
	}

	report.DirectoryName = options.Directory
	if report.DirectoryName == "" {
		report.DirectoryName = report.Snapshot.Directory
	}
	var listed []uint32
	if report.DirectoryName != "" {
		ids, err := readDirectory(options.Namespace, report.DirectoryName, &report)
		if err != nil {
			report.Problems = append(report.Problems, err.Error())
		}
		listed = ids
	}

	report.Rows = mergeRows(listed, report.Snapshot)
	return report
}

func readDirectory(namespace shm.Namespace, name string, report *Report) ([]uint32, error) {
	segment, err := namespace.Open(name, layout.DirectorySize, true)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", name, err)
	}
	defer segment.Close()
	directory, err := layout.NewDirectory(segment.Bytes())
	if err != nil {
		return nil, err
	}
	report.DirectoryFound = true
	report.DirectoryCount = directory.Count()
	report.DirectoryState = layout.Classify(report.DirectoryCount)
	return directory.AppendIDs(nil, directory.Count()), nil
}

func mergeRows(listed []uint32, snapshot statusfile.Snapshot) []Row {
	rows := make(map[uint32]*Row)
	row := func(id uint32) *Row {
		if existing, ok := rows[id]; ok {
			return existing
		}
		created := &Row{ID: id}
		rows[id] = created
		return created
	}
	for _, id := range listed {
		row(id).Listed = true
	}
	for _, status := range snapshot.Instances {
		entry := row(status.ID)
		entry.Running = true
		entry.Status = status
	}
	for _, id := range snapshot.FailedIDs {
		row(id).Failed = true
	}

	ids := make([]uint32, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	merged := make([]Row, len(ids))
	for index, id := range ids {
		merged[index] = *rows[id]
	}
	return merged
}

// Running returns the ids the host runs instances for.
func (report Report) Running() map[uint32]bool {
	running := make(map[uint32]bool)
	for _, row := range report.Rows {
		if row.Running {
			running[row.ID] = true
		}
	}
	return running
}
