package tasks

import (
	"fmt"

	"github.com/desertthunder/moodlog/internal/formatter"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchEntries Phase = iota
	Aggregate
	RenderExport
	WriteExport
)

func (p Phase) String() string {
	switch p {
	case FetchEntries:
		return "fetch_entries"
	case Aggregate:
		return "aggregate"
	case RenderExport:
		return "render_export"
	case WriteExport:
		return "write_export"
	default:
		return ""
	}
}

func fetchEntriesUpdate(step, total int, userID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchEntries,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching mood history for %s...", userID),
	}
}

func foundEntriesUpdate(step, total, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchEntries,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Found %d entries", count),
		Data:    count,
	}
}

func aggregateUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Aggregate,
		Step:    step,
		Total:   total,
		Message: "Counting moods and streaks...",
	}
}

func renderExportUpdate(step, total int, f formatter.Format) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RenderExport,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Rendering %s export...", f),
	}
}

func exportWrittenUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteExport,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("✓ Wrote %s", path),
		Data:    path,
	}
}
