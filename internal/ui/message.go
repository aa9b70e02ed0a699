package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodlog/internal/gate"
	"github.com/desertthunder/moodlog/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgEvaluated MsgKind = iota
	MsgSubmitted
	MsgSettled
	MsgTick
)

type evaluatedData struct {
	decision gate.Decision
	err      error
}

type submittedData struct {
	entry *models.MoodEntry
	err   error
}

// evaluatedMsg is the constructor for [MsgEvaluated]
func evaluatedMsg(decision gate.Decision, err error) Msg {
	return Msg{kind: MsgEvaluated, data: evaluatedData{decision, err}}
}

// submittedMsg is the constructor for [MsgSubmitted]
func submittedMsg(entry *models.MoodEntry, err error) Msg {
	return Msg{kind: MsgSubmitted, data: submittedData{entry, err}}
}

// settledMsg is the constructor for [MsgSettled]
func settledMsg() Msg {
	return Msg{kind: MsgSettled}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}
