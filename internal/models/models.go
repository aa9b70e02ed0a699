// package models defines the data model for the mood check-in service
package models

import (
	"time"
)

// Model defines the base interface for all persistent models in the check-in service.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

var _ Model = (*MoodEntry)(nil)
