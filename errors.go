package blanklogo

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("blanklogo: no store configured")
	ErrStoreClosed     = errors.New("blanklogo: store closed")
	ErrMigrationFailed = errors.New("blanklogo: migration failed")

	// Not found errors.
	ErrJobNotFound   = errors.New("blanklogo: job not found")
	ErrEventNotFound = errors.New("blanklogo: job event not found")

	// Conflict errors.
	ErrJobAlreadyExists = errors.New("blanklogo: job already exists")

	// State errors.
	ErrInvalidTransition = errors.New("blanklogo: invalid state transition")
	ErrAttemptsExhausted = errors.New("blanklogo: retry attempts exhausted")

	// Lease errors.
	ErrLeaseHeld = errors.New("blanklogo: lease held by another worker")
)
