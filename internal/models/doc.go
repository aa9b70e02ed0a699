// Package models defines domain entities and persistence interfaces for the moodlog check-in service.
//
// The package contains two categories of types:
//
// 1. Value types: validated at the boundary before anything is persisted
//   - [Mood] : The fixed self-report label set (Happy, Okay, Neutral, Sad, Angry)
//
// 2. Persistent Entities: Database-backed models
//   - [MoodEntry] : One user's mood for a moment in time, immutable apart from soft deletion
//
// Persistent entities implement the [Model] interface providing IDs, timestamps and validation.
package models
