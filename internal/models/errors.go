package models

import "errors"

// Dispatch error taxonomy. Callers match with errors.Is after each layer
// wraps with fmt.Errorf("...: %w", err).
var (
	// ErrInvalidLocation - report location missing or malformed, rejected before persistence.
	ErrInvalidLocation = errors.New("invalid location")
	// ErrInvalidCoordinates - latitude/longitude outside valid ranges or not finite.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrIncidentNotFound - unknown incident id.
	ErrIncidentNotFound = errors.New("incident not found")
	// ErrHospitalNotFound - unknown hospital id.
	ErrHospitalNotFound = errors.New("hospital not found")
	// ErrNoHospitalAvailable - no verified, emergency-capable hospital exists.
	// A valid outcome, not a failure: the incident stays PENDING.
	ErrNoHospitalAvailable = errors.New("no eligible hospital available")
	// ErrInvalidTransition - terminal state or disallowed status jump.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrChannelUnavailable - adapter unreachable or timed out; retryable.
	ErrChannelUnavailable = errors.New("channel unavailable")
	// ErrInvalidRecipient - malformed recipient identifier; not retryable.
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrUnknownChannel - selection policy produced no match; a defect.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrStatusConflict - conditional update lost a race; re-read and revalidate.
	ErrStatusConflict = errors.New("incident status changed concurrently")
)
