package ui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodlog/internal/gate"
	"github.com/desertthunder/moodlog/internal/models"
	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/facebookgo/clock"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	EvaluatingView ViewState = iota
	ReadErrorView
	MoodListView
	NoteView
	SavingView
	DoneView
)

// Model represents the TUI application state for a single check-in.
type Model struct {
	ctx      context.Context
	act      *gate.Activation
	clock    clock.Clock
	view     ViewState
	width    int
	height   int
	moods    list.Model
	note     textinput.Model
	selected models.Mood
	now      time.Time
	entry    *models.MoodEntry
	checked  bool // already checked in before the prompt opened
	auto     bool
	aborted  bool
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a prompt driving act. clk should be the clock of the gate that created act.
func NewModel(ctx context.Context, act *gate.Activation, clk clock.Clock) *Model {
	if clk == nil {
		clk = clock.New()
	}

	moods := list.New(moodItems(), list.NewDefaultDelegate(), 40, 16)
	moods.Title = "How are you feeling today?"
	moods.SetFilteringEnabled(false)
	moods.SetShowStatusBar(false)
	moods.SetShowHelp(false)

	note := textinput.New()
	note.Placeholder = "Add a note (optional)"
	note.CharLimit = 280
	note.Width = 40

	return &Model{
		ctx:   ctx,
		act:   act,
		clock: clk,
		view:  EvaluatingView,
		moods: moods,
		note:  note,
		help:  help.New(),
		keys:  newKeyMap(),
	}
}

// ViewState returns the current view.
func (m *Model) ViewState() ViewState { return m.view }

// Err returns the last error shown to the user, if any.
func (m *Model) Err() error { return m.err }

// Aborted reports whether the user quit before the check-in settled.
func (m *Model) Aborted() bool { return m.aborted }

// Init evaluates the activation.
func (m *Model) Init() tea.Cmd {
	return m.evaluate()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.moods.SetSize(max(msg.Width-4, 20), max(min(msg.Height-8, 16), 8))
		m.note.Width = max(msg.Width-8, 20)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case EvaluatingView, SavingView:
			if key.Matches(msg, m.keys.abort) {
				return m.quit()
			}
			return m, nil
		case ReadErrorView:
			return m.handleReadErrorKeys(msg)
		case MoodListView:
			return m.handleMoodListKeys(msg)
		case NoteView:
			return m.handleNoteKeys(msg)
		case DoneView:
			if key.Matches(msg, m.keys.quit, m.keys.enter) {
				return m, tea.Quit
			}
			return m, nil
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateInputs(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgEvaluated:
		data := msg.data.(evaluatedData)
		if data.err != nil {
			if errors.Is(data.err, shared.ErrDisposed) {
				m.aborted = true
				m.view = DoneView
				return m, nil
			}
			m.err = data.err
			m.view = ReadErrorView
			return m, nil
		}

		if data.decision == gate.AlreadyCheckedIn {
			m.checked = true
			m.entry = m.act.Outcome().Entry
			m.view = DoneView
			return m, nil
		}

		m.now = m.clock.Now()
		m.view = MoodListView
		return m, tea.Batch(m.waitSettled(), m.tick())

	case MsgSubmitted:
		data := msg.data.(submittedData)
		if data.err != nil {
			// Lost the latch to the auto-save; the settle message carries the result.
			if errors.Is(data.err, shared.ErrAlreadyCommitted) {
				return m, nil
			}
			m.err = data.err
			m.view = NoteView
			return m, m.note.Focus()
		}
		m.err = nil
		m.entry = data.entry
		m.view = DoneView
		return m, nil

	case MsgSettled:
		return m.settle()

	case MsgTick:
		switch m.view {
		case MoodListView, NoteView, SavingView:
			m.now = msg.data.(time.Time)
			return m, m.tick()
		}
		return m, nil
	}
	return m, nil
}

// settle moves to the done view once the activation finishes on its own, e.g. after the auto-save.
func (m *Model) settle() (tea.Model, tea.Cmd) {
	if m.view == DoneView {
		return m, nil
	}

	out := m.act.Outcome()
	switch m.act.State() {
	case gate.Disposed:
		m.aborted = true
	case gate.Failed:
		m.err = out.Err
	default:
		m.err = nil
		m.entry = out.Entry
		m.auto = out.AutoSaved
	}
	m.view = DoneView
	return m, nil
}

// quit disposes the activation so a pending auto-save never fires.
func (m *Model) quit() (tea.Model, tea.Cmd) {
	if !m.act.State().Terminal() {
		m.act.Dispose()
		m.aborted = true
	}
	return m, tea.Quit
}

func (m *Model) handleReadErrorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.retry):
		m.err = nil
		m.view = EvaluatingView
		return m, m.evaluate()
	}
	return m, nil
}

func (m *Model) handleMoodListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.moods.SelectedItem().(moodItem); ok {
			m.selected = item.mood
			m.view = NoteView
			return m, m.note.Focus()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.moods, cmd = m.moods.Update(msg)
	return m, cmd
}

// handleNoteKeys leaves q to the text input; only ctrl+c quits here.
func (m *Model) handleNoteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.abort):
		return m.quit()
	case key.Matches(msg, m.keys.back):
		m.note.Blur()
		m.view = MoodListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		m.note.Blur()
		m.view = SavingView
		return m, m.submit(m.selected, m.note.Value())
	}

	var cmd tea.Cmd
	m.note, cmd = m.note.Update(msg)
	return m, cmd
}

func (m *Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case MoodListView:
		m.moods, cmd = m.moods.Update(msg)
	case NoteView:
		m.note, cmd = m.note.Update(msg)
	}
	return m, cmd
}

func (m *Model) evaluate() tea.Cmd {
	return func() tea.Msg {
		decision, err := m.act.Evaluate(m.ctx)
		return evaluatedMsg(decision, err)
	}
}

func (m *Model) submit(mood models.Mood, note string) tea.Cmd {
	return func() tea.Msg {
		entry, err := m.act.Submit(m.ctx, mood, note)
		return submittedMsg(entry, err)
	}
}

func (m *Model) waitSettled() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.act.Done():
		case <-m.ctx.Done():
		}
		return settledMsg()
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg(m.clock.Now())
	})
}

// remaining is the countdown shown to the user, rounded up to whole seconds.
func (m *Model) remaining() time.Duration {
	at := m.act.AutoSaveAt()
	if at.IsZero() {
		return 0
	}
	left := at.Sub(m.now)
	if left <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(left.Seconds())) * time.Second
}

func formatCountdown(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case EvaluatingView:
		return m.renderEvaluating()
	case ReadErrorView:
		return m.renderReadError()
	case MoodListView:
		return m.renderMoodList()
	case NoteView:
		return m.renderNote()
	case SavingView:
		return m.renderSaving()
	case DoneView:
		return m.renderDone()
	default:
		return ""
	}
}

func (m *Model) renderCountdown() string {
	return styles.warn.Render(fmt.Sprintf("Saving %s %s in %s",
		models.AutoSaveMood.Emoji(), models.AutoSaveMood, formatCountdown(m.remaining())))
}

func (m *Model) renderEvaluating() string {
	title := styles.title.Render("Daily check-in")
	return fmt.Sprintf("%s\nChecking today's check-in...\n", title)
}

func (m *Model) renderReadError() string {
	title := styles.title.Render("Daily check-in")
	msg := styles.err.Render(fmt.Sprintf("Could not load your check-ins: %v", m.err))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.retry, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, msg, helpView)
}

func (m *Model) renderMoodList() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", m.moods.View(), m.renderCountdown(), helpView)
}

func (m *Model) renderNote() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("%s %s", m.selected.Emoji(), m.selected)))
	b.WriteString("\n")
	b.WriteString(m.note.View())
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Save failed: %v", m.err)))
		b.WriteString("\n")
	}
	b.WriteString(m.renderCountdown())
	b.WriteString("\n\n")

	save := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save"))
	b.WriteString(m.help.ShortHelpView([]key.Binding{save, m.keys.back, m.keys.abort}))
	return b.String()
}

func (m *Model) renderSaving() string {
	title := styles.title.Render("Daily check-in")
	return fmt.Sprintf("%s\nSaving %s %s...\n", title, m.selected.Emoji(), m.selected)
}

func (m *Model) renderDone() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Daily check-in"))
	b.WriteString("\n")

	switch {
	case m.aborted:
		b.WriteString(styles.warn.Render("Check-in skipped. Nothing was saved."))
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Check-in failed: %v", m.err)))
	case m.entry == nil:
		b.WriteString(styles.ok.Render("Done."))
	case m.checked:
		fmt.Fprintf(&b, "Already checked in today: %s at %s",
			renderMood(m.entry.Mood()), m.entry.CreatedAt().In(m.act.Location()).Format("15:04"))
	case m.auto:
		fmt.Fprintf(&b, "%s %s (%s)",
			styles.warn.Render("Time ran out, saved"), renderMood(m.entry.Mood()), m.entry.Note())
	default:
		fmt.Fprintf(&b, "%s %s", styles.ok.Render("Saved"), renderMood(m.entry.Mood()))
		if m.entry.Note() != "" {
			fmt.Fprintf(&b, "\n%s", styles.help.Render(m.entry.Note()))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func renderMood(mood models.Mood) string {
	label := mood.Emoji() + " " + mood.String()
	if style, ok := moodColors[mood.String()]; ok {
		return style.Render(label)
	}
	return label
}
