package broadcast

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Topic names. Subscribers join topics; publishers never see subscribers.
const (
	TopicIncidentGlobal = "incident-global"
)

// Realtime event types, mirrored by the UI clients.
const (
	EventSOSUpdate       = "sos_update"
	EventSOSAssigned     = "sos_assigned"
	EventSOSStatusUpdate = "sos_status_update"
	EventHospitalUpdate  = "hospital_update"
	EventStockUpdate     = "stock_update"
)

// HospitalTopic returns the per-hospital topic name.
func HospitalTopic(id uuid.UUID) string {
	return fmt.Sprintf("hospital:%s", id)
}

// ResponderTopic returns the per-responder topic name.
func ResponderTopic(id string) string {
	return fmt.Sprintf("responder:%s", id)
}

// StockTopic returns the per-hospital stock topic name.
func StockTopic(id uuid.UUID) string {
	return fmt.Sprintf("stock:%s", id)
}

// Event is one realtime update delivered to topic subscribers. Delivery is
// best-effort and at-most-once; there is no replay for late joiners.
type Event struct {
	Topic     string    `json:"topic"`
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}
