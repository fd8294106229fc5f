package models

import "time"

// Priority orders notifications for channel selection.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// EventType classifies a notification for the audit trail.
type EventType string

const (
	EventEmergencyAlert EventType = "emergency_alert"
	EventHospitalUpdate EventType = "hospital_update"
	EventStockAlert     EventType = "stock_alert"
)

// Channel names a delivery technology.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelChat  Channel = "chat"
	ChannelEmail Channel = "email"
)

// NotificationPayload is the channel-agnostic unit of delivery.
type NotificationPayload struct {
	Type       EventType `json:"type"`
	Recipient  string    `json:"recipient"`
	Message    string    `json:"message"`
	Priority   Priority  `json:"priority"`
	IncidentID string    `json:"incident_id,omitempty"`
}

// DeliveryOutcome is the per-recipient result of one dispatch attempt.
type DeliveryOutcome struct {
	Recipient string  `json:"recipient"`
	Channel   Channel `json:"channel"`
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
	Retryable bool    `json:"retryable"`
}

// BatchSummary aggregates a fan-out: Successful+Failed always equals Total.
type BatchSummary struct {
	Total      int               `json:"total"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Outcomes   []DeliveryOutcome `json:"outcomes"`
}

// AuditEntry is the immutable record of one dispatch attempt.
type AuditEntry struct {
	ID            int64     `json:"id"`
	EventType     EventType `json:"event_type"`
	Recipient     string    `json:"recipient"`
	Priority      Priority  `json:"priority"`
	Channel       Channel   `json:"channel"`
	MessageLength int       `json:"message_length"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
