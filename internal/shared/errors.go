package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Identity errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrRateLimited      = fmt.Errorf("rate limit exceeded")

	// Store errors
	ErrStoreRead     = fmt.Errorf("mood store read failed")
	ErrStoreWrite    = fmt.Errorf("mood store write failed")
	ErrEntryNotFound = fmt.Errorf("mood entry not found")

	// Check-in gate errors
	ErrInvalidMood        = fmt.Errorf("invalid mood label")
	ErrNotArmed           = fmt.Errorf("check-in is not awaiting a mood")
	ErrAlreadyCommitted   = fmt.Errorf("check-in already committed")
	ErrDisposed           = fmt.Errorf("check-in was dismissed")
	ErrActivationNotFound = fmt.Errorf("check-in activation not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
