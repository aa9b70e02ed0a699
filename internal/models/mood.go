package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/moodlog/internal/shared"
)

// Mood is one label of the fixed self-report set.
type Mood string

const (
	MoodHappy   Mood = "Happy"
	MoodOkay    Mood = "Okay"
	MoodNeutral Mood = "Neutral"
	MoodSad     Mood = "Sad"
	MoodAngry   Mood = "Angry"
)

const (
	// AutoSaveMood is written when the user lets the check-in window lapse.
	AutoSaveMood = MoodNeutral
	// AutoSaveNote marks an entry as system generated.
	AutoSaveNote = "Auto-saved"
)

var moods = []Mood{MoodHappy, MoodOkay, MoodNeutral, MoodSad, MoodAngry}

// Moods returns the label set in display order.
func Moods() []Mood {
	out := make([]Mood, len(moods))
	copy(out, moods)
	return out
}

// ParseMood normalizes s to a canonical label, ignoring case and surrounding whitespace.
func ParseMood(s string) (Mood, error) {
	v := strings.TrimSpace(s)
	for _, m := range moods {
		if strings.EqualFold(v, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of %s)", shared.ErrInvalidMood, s, moodList())
}

// Valid reports whether m is a canonical label.
func (m Mood) Valid() bool {
	for _, v := range moods {
		if m == v {
			return true
		}
	}
	return false
}

func (m Mood) String() string { return string(m) }

// Emoji returns a glyph for terminal and markdown output.
func (m Mood) Emoji() string {
	switch m {
	case MoodHappy:
		return "😊"
	case MoodOkay:
		return "🙂"
	case MoodNeutral:
		return "😐"
	case MoodSad:
		return "😢"
	case MoodAngry:
		return "😠"
	default:
		return "?"
	}
}

// UnmarshalJSON rejects labels outside the set.
func (m *Mood) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: mood must be a string", shared.ErrInvalidMood)
	}
	parsed, err := ParseMood(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func moodList() string {
	names := make([]string, len(moods))
	for i, m := range moods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
