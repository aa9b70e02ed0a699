// Package ui implements the interactive daily check-in prompt using bubbletea's Elm architecture.
//
// The prompt walks one gate activation through its views:
//  1. [EvaluatingView] : Checking whether today's check-in exists
//  2. [ReadErrorView] : The store could not be read; offer a retry instead of guessing
//  3. [MoodListView] : Pick a mood while the auto-save countdown runs
//  4. [NoteView] : Optional note for the selected mood
//  5. [SavingView] : Waiting on the store write
//  6. [DoneView] : Already checked in, saved, auto-saved or failed
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// The countdown is display only: the activation owns the real timer, and the prompt just listens for
// [gate.Activation.Done]. Quitting before the check-in settles disposes the activation so nothing is written.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
