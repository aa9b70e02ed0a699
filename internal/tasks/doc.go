// Package tasks builds reports over a user's mood history with real-time progress reporting.
//
// # Core Operations
//
// [HistoryEngine] offers three operations:
//
//  1. [HistoryEngine.History] : newest-first listing of live entries
//     - Optional window (since / last N days) and mood filter
//     - Returned as a [formatter.History] bound to the viewer's time zone
//
//  2. [HistoryEngine.Summarize] : aggregate view of a window
//     - Counts per mood and auto-saved count
//     - Distinct days checked in, current and longest streak
//
//  3. [HistoryEngine.Export] : render history to a file
//     - JSON, CSV, Markdown or text via package formatter
//
// # Progress Reporting
//
// Summarize and Export accept an optional progress channel. Updates use select with default
// so reporting never blocks the operation.
//
// # Calendar Dates
//
// Days and streaks are computed in the caller-supplied location, the same way the check-in
// gate decides whether a user has checked in "today".
package tasks
