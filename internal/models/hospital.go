package models

import (
	"time"

	"github.com/google/uuid"
)

// HospitalVerification is the directory review state of a facility.
type HospitalVerification string

const (
	HospitalPending  HospitalVerification = "PENDING"
	HospitalVerified HospitalVerification = "VERIFIED"
	HospitalRejected HospitalVerification = "REJECTED"
)

// ContactInfo holds the delivery identifiers for a hospital. Every field
// is optional; an empty string means the channel is not available.
type ContactInfo struct {
	Phone          string `json:"phone,omitempty"`
	EmergencyPhone string `json:"emergency_phone,omitempty"`
	Email          string `json:"email,omitempty"`
}

// Hospital is a facility eligible to receive incidents. Owned by the
// directory; the dispatch core only reads it.
type Hospital struct {
	ID                uuid.UUID            `json:"id"`
	Name              string               `json:"name"`
	Latitude          float64              `json:"latitude"`
	Longitude         float64              `json:"longitude"`
	VerifiedStatus    HospitalVerification `json:"verified_status"`
	ContactInfo       ContactInfo          `json:"contact_info"`
	AntivenomStock    string               `json:"antivenom_stock,omitempty"`
	EmergencyServices bool                 `json:"emergency_services"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// IsEligible reports whether the hospital may be a resolution target.
func (h *Hospital) IsEligible() bool {
	return h.VerifiedStatus == HospitalVerified && h.EmergencyServices
}

// StockItem is the antivenom stock summary used by stock alerts.
type StockItem struct {
	AntivenomType string    `json:"antivenom_type"`
	Quantity      int       `json:"quantity"`
	ExpiryDate    time.Time `json:"expiry_date"`
}
