package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentStatus is the dispatch lifecycle state of an SOS report.
type IncidentStatus string

const (
	StatusPending    IncidentStatus = "PENDING"
	StatusAssigned   IncidentStatus = "ASSIGNED"
	StatusInProgress IncidentStatus = "IN_PROGRESS"
	StatusCompleted  IncidentStatus = "COMPLETED"
	StatusCancelled  IncidentStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s IncidentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsValid reports whether s is one of the known lifecycle states.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows s -> next.
// Forward order is PENDING -> ASSIGNED -> IN_PROGRESS -> COMPLETED, one
// gate at a time out of PENDING so an incident can never pass ASSIGNED
// without a hospital; CANCELLED is reachable from any non-terminal state.
func (s IncidentStatus) CanTransitionTo(next IncidentStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusAssigned
	case StatusAssigned:
		return next == StatusInProgress || next == StatusCompleted
	case StatusInProgress:
		return next == StatusCompleted
	}
	return false
}

// Incident is one reported snakebite event (an SOS report).
type Incident struct {
	ID              uuid.UUID      `json:"id"`
	Latitude        float64        `json:"latitude"`
	Longitude       float64        `json:"longitude"`
	Address         string         `json:"address,omitempty"`
	ResponderID     string         `json:"responder_id"`
	SnakeSpeciesID  *uuid.UUID     `json:"snake_species_id,omitempty"`
	HospitalID      *uuid.UUID     `json:"hospital_id,omitempty"`
	Status          IncidentStatus `json:"status"`
	VictimInfo      map[string]any `json:"victim_info,omitempty"`
	Symptoms        []string       `json:"symptoms,omitempty"`
	FirstAidApplied []string       `json:"first_aid_applied,omitempty"`
	AdditionalNotes string         `json:"additional_notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// IncidentUpdate carries the mutable fields of a transition request.
// Nil pointers leave the stored value untouched.
type IncidentUpdate struct {
	Status          *IncidentStatus
	HospitalID      *uuid.UUID
	SnakeSpeciesID  *uuid.UUID
	Symptoms        []string
	FirstAidApplied []string
	AdditionalNotes *string
}

// StatusCount is one row of the dispatch statistics aggregation.
type StatusCount struct {
	Status IncidentStatus `json:"status"`
	Count  int            `json:"count"`
}
