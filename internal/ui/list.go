package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/moodlog/internal/models"
)

var (
	_ list.Item = moodItem{}
)

// moodItem wraps [models.Mood] to implement [list.Item].
type moodItem struct {
	mood models.Mood
}

func (i moodItem) FilterValue() string { return i.mood.String() }
func (i moodItem) Title() string       { return i.mood.Emoji() + "  " + i.mood.String() }
func (i moodItem) Description() string {
	if i.mood == models.AutoSaveMood {
		return "also saved for you if the timer runs out"
	}
	return ""
}

func moodItems() []list.Item {
	moods := models.Moods()
	items := make([]list.Item, len(moods))
	for i, m := range moods {
		items[i] = moodItem{mood: m}
	}
	return items
}
