package providers

import (
	"context"

	"github.com/zatekoja/roadsideassist/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.PartnerEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.PartnerEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for different event types
const (
	// EventChannelPartnerUpdates is the channel for all partner updates
	EventChannelPartnerUpdates = "partner:updates"

	// EventChannelPartnerPrefix is the prefix for partner-specific channels
	EventChannelPartnerPrefix = "partner:"
)

// GetPartnerChannel returns the channel name for a specific partner
func GetPartnerChannel(partnerID string) string {
	return EventChannelPartnerPrefix + partnerID
}
