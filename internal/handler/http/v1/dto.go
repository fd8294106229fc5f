package v1

import (
	"time"

	"github.com/google/uuid"

	"github.com/MauriceOS/snaktox-dispatch/internal/models"
)

// CreateSOSReportRequest is the submit-incident request body.
// @Description Submit a new snakebite SOS report
type CreateSOSReportRequest struct {
	Latitude        *float64       `json:"latitude" validate:"required,latitude"`
	Longitude       *float64       `json:"longitude" validate:"required,longitude"`
	Address         string         `json:"address,omitempty"`
	ResponderID     string         `json:"responder_id" validate:"required"`
	SnakeSpeciesID  *uuid.UUID     `json:"snake_species_id,omitempty"`
	VictimInfo      map[string]any `json:"victim_info,omitempty"`
	Symptoms        []string       `json:"symptoms,omitempty"`
	FirstAidApplied []string       `json:"first_aid_applied,omitempty"`
	AdditionalNotes string         `json:"additional_notes,omitempty"`
}

// UpdateSOSReportRequest is the transition request body. Omitted fields are
// left untouched.
// @Description Update an SOS report and/or transition its status
type UpdateSOSReportRequest struct {
	Status          *string    `json:"status,omitempty" validate:"omitempty,oneof=PENDING ASSIGNED IN_PROGRESS COMPLETED CANCELLED"`
	SnakeSpeciesID  *uuid.UUID `json:"snake_species_id,omitempty"`
	Symptoms        []string   `json:"symptoms,omitempty"`
	FirstAidApplied []string   `json:"first_aid_applied,omitempty"`
	AdditionalNotes *string    `json:"additional_notes,omitempty"`
}

// AssignHospitalRequest is the explicit (re)assignment request body.
// @Description Assign a hospital to an SOS report
type AssignHospitalRequest struct {
	HospitalID uuid.UUID `json:"hospital_id" validate:"required"`
}

// StockAlertRequest triggers an antivenom stock alert for a hospital.
// @Description Antivenom stock alert payload
type StockAlertRequest struct {
	AntivenomType string    `json:"antivenom_type" validate:"required"`
	Quantity      int       `json:"quantity" validate:"gte=0"`
	ExpiryDate    time.Time `json:"expiry_date"`
}

// SOSReportResponse is the canonical incident record returned by every
// dispatch operation.
// @Description SOS report with dispatch state
type SOSReportResponse struct {
	ID              uuid.UUID             `json:"id"`
	Latitude        float64               `json:"latitude"`
	Longitude       float64               `json:"longitude"`
	Address         string                `json:"address,omitempty"`
	ResponderID     string                `json:"responder_id"`
	SnakeSpeciesID  *uuid.UUID            `json:"snake_species_id,omitempty"`
	HospitalID      *uuid.UUID            `json:"hospital_id,omitempty"`
	Status          models.IncidentStatus `json:"status"`
	VictimInfo      map[string]any        `json:"victim_info,omitempty"`
	Symptoms        []string              `json:"symptoms,omitempty"`
	FirstAidApplied []string              `json:"first_aid_applied,omitempty"`
	AdditionalNotes string                `json:"additional_notes,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// StatsResponse is the dispatch statistics payload.
// @Description Incident counts per status inside the stats window
type StatsResponse struct {
	WindowMinutes int                  `json:"window_minutes"`
	Total         int                  `json:"total"`
	ByStatus      []models.StatusCount `json:"by_status"`
}
