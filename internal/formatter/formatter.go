// package formatter renders mood history to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/moodlog/internal/models"
	"github.com/desertthunder/moodlog/internal/shared"
)

// Format is an export rendering.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "text"
)

// Formats lists the supported export formats.
func Formats() []Format {
	return []Format{JSON, CSV, Markdown, Text}
}

// ParseFormat accepts a format name or a common alias ("md", "txt").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "text", "txt", "table":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension, without the dot, used for f.
func (f Format) Extension() string {
	switch f {
	case CSV:
		return "csv"
	case Markdown:
		return "md"
	case Text:
		return "txt"
	default:
		return "json"
	}
}

// ContentType returns the HTTP media type for f.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case Markdown:
		return "text/markdown; charset=utf-8"
	case Text:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// History is one user's mood entries, newest first, as seen from Location.
type History struct {
	UserID   string
	Location *time.Location
	Entries  []*models.MoodEntry
}

func (h *History) loc() *time.Location {
	if h.Location == nil {
		return time.Local
	}
	return h.Location
}

type historyJSON struct {
	UserID   string              `json:"user_id"`
	Timezone string              `json:"timezone"`
	Count    int                 `json:"count"`
	Entries  []*models.MoodEntry `json:"entries"`
}

// ExportToJSON renders the history as indented JSON.
func ExportToJSON(h *History) ([]byte, error) {
	entries := h.Entries
	if entries == nil {
		entries = []*models.MoodEntry{}
	}
	return shared.MarshalJSON(historyJSON{
		UserID:   h.UserID,
		Timezone: h.loc().String(),
		Count:    len(entries),
		Entries:  entries,
	}, true)
}

// ExportToCSV converts a History to CSV format with columns: ID, Date, Time, Mood, Note, AutoSaved
func ExportToCSV(h *History) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Date", "Time", "Mood", "Note", "AutoSaved"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range h.Entries {
		local := e.CreatedAt().In(h.loc())
		record := []string{
			e.ID(),
			local.Format(time.DateOnly),
			local.Format(time.TimeOnly),
			e.Mood().String(),
			e.Note(),
			strconv.FormatBool(e.AutoSaved()),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a History to a Markdown table.
func ExportToMarkdown(h *History) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Mood history: %s\n\n", h.UserID))
	buf.WriteString(fmt.Sprintf("**Entries**: %d\n", len(h.Entries)))
	buf.WriteString(fmt.Sprintf("**Time zone**: %s\n\n", h.loc()))

	if len(h.Entries) == 0 {
		buf.WriteString("_No check-ins yet._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| Date | Time | Mood | Note |\n")
	buf.WriteString("|------|------|------|------|\n")
	for _, e := range h.Entries {
		local := e.CreatedAt().In(h.loc())
		note := escapeCell(e.Note())
		if e.AutoSaved() {
			note = "_" + note + "_"
		}
		buf.WriteString(fmt.Sprintf("| %s | %s | %s %s | %s |\n",
			local.Format(time.DateOnly), local.Format("15:04"), e.Mood().Emoji(), e.Mood(), note))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a History to plain text format
func ExportToText(h *History) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("User: %s\n", h.UserID))
	buf.WriteString(fmt.Sprintf("Entries: %d\n\n", len(h.Entries)))

	for i, e := range h.Entries {
		local := e.CreatedAt().In(h.loc())
		line := fmt.Sprintf("%d. %s  %-7s", i+1, local.Format("2006-01-02 15:04"), e.Mood())
		if e.Note() != "" {
			line += "  " + e.Note()
		}
		if e.AutoSaved() {
			line += "  (auto)"
		}
		buf.WriteString(strings.TrimRight(line, " ") + "\n")
	}

	return buf.Bytes(), nil
}

// Render dispatches to the exporter for f.
func Render(h *History, f Format) ([]byte, error) {
	switch f {
	case CSV:
		return ExportToCSV(h)
	case Markdown:
		return ExportToMarkdown(h)
	case Text:
		return ExportToText(h)
	case JSON:
		return ExportToJSON(h)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

// WriteExport renders h and writes it to path, creating parent directories as needed.
//
// Defaults to moods_{user}.{ext} as the filename.
func WriteExport(h *History, f Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("moods_%s.%s", h.UserID, f.Extension())
	}

	data, err := Render(h, f)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", f, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
