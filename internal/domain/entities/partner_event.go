package entities

import (
	"time"

	"github.com/google/uuid"
)

// PartnerEventType represents the type of partner event
type PartnerEventType string

const (
	PartnerEventTypeRegistered      PartnerEventType = "registered"
	PartnerEventTypeLocationUpdated PartnerEventType = "location_updated"
	PartnerEventTypeStatusUpdated   PartnerEventType = "status_updated"
	PartnerEventTypeProfileUpdated  PartnerEventType = "profile_updated"
)

// PartnerEvent is published whenever a partner changes in a way that affects search
type PartnerEvent struct {
	ID            string                 `json:"id"`
	PartnerID     string                 `json:"partner_id"`
	EventType     PartnerEventType       `json:"event_type"`
	Timestamp     time.Time              `json:"timestamp"`
	Location      GeoPoint               `json:"location"`
	ChangedFields map[string]interface{} `json:"changed_fields,omitempty"`
}

// NewPartnerEvent creates a new partner event
func NewPartnerEvent(partnerID string, eventType PartnerEventType, location GeoPoint, changedFields map[string]interface{}) *PartnerEvent {
	return &PartnerEvent{
		ID:            uuid.New().String(),
		PartnerID:     partnerID,
		EventType:     eventType,
		Timestamp:     time.Now().UTC(),
		Location:      location,
		ChangedFields: changedFields,
	}
}
