package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/providers"
	redisclient "github.com/zatekoja/roadsideassist/internal/infrastructure/clients/redis"
)

const subscriberBufferSize = 100

type subscription struct {
	pubsub      *redis.PubSub
	subscribers map[chan *entities.PartnerEvent]struct{}
}

// RedisEventBus implements the EventBus interface using Redis Pub/Sub.
// One Redis subscription is shared by all local subscribers of a channel.
type RedisEventBus struct {
	client        *redisclient.Client
	subscriptions map[string]*subscription
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		subscriptions: make(map[string]*subscription),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish publishes a partner event
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.PartnerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("event_type", string(event.EventType)).
		Msg("Published partner event")
	return nil
}

// Subscribe subscribes to events on a channel. The returned channel is closed
// when ctx is cancelled or the channel is unsubscribed.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.PartnerEvent, error) {
	b.mu.Lock()
	sub, exists := b.subscriptions[channel]
	if !exists {
		// Receive runs unlocked; the map is checked again afterwards
		b.mu.Unlock()
		pubsub := b.client.Client().Subscribe(b.ctx, channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}

		b.mu.Lock()
		if err := b.ctx.Err(); err != nil {
			b.mu.Unlock()
			_ = pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe to %s: event bus closed", channel)
		}
		if sub, exists = b.subscriptions[channel]; exists {
			// another caller subscribed the channel first
			_ = pubsub.Close()
		} else {
			sub = &subscription{
				pubsub:      pubsub,
				subscribers: make(map[chan *entities.PartnerEvent]struct{}),
			}
			b.subscriptions[channel] = sub
			go b.receiveMessages(channel, pubsub)
		}
	}

	eventChan := make(chan *entities.PartnerEvent, subscriberBufferSize)
	sub.subscribers[eventChan] = struct{}{}
	count := len(sub.subscribers)
	b.mu.Unlock()

	log.Info().Str("channel", channel).Int("subscribers", count).Msg("Subscribed to channel")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.removeSubscriber(channel, eventChan)
	}()

	return eventChan, nil
}

// receiveMessages fans out messages from Redis to local subscribers
func (b *RedisEventBus) receiveMessages(channel string, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event entities.PartnerEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("Failed to unmarshal partner event")
				continue
			}

			b.mu.RLock()
			if sub, ok := b.subscriptions[channel]; ok && sub.pubsub == pubsub {
				for subscriber := range sub.subscribers {
					select {
					case subscriber <- &event:
					default:
						log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber channel full, dropping event")
					}
				}
			}
			b.mu.RUnlock()
		}
	}
}

func (b *RedisEventBus) removeSubscriber(channel string, eventChan chan *entities.PartnerEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, exists := b.subscriptions[channel]
	if !exists {
		return
	}
	if _, ok := sub.subscribers[eventChan]; !ok {
		return
	}

	delete(sub.subscribers, eventChan)
	close(eventChan)

	if len(sub.subscribers) == 0 {
		_ = sub.pubsub.Close()
		delete(b.subscriptions, channel)
		log.Info().Str("channel", channel).Msg("Closed subscription")
	}
}

func (b *RedisEventBus) closeChannel(channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, exists := b.subscriptions[channel]
	if !exists {
		return nil
	}

	for subscriber := range sub.subscribers {
		close(subscriber)
	}
	delete(b.subscriptions, channel)

	if err := sub.pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	log.Info().Str("channel", channel).Msg("Closed subscription")
	return nil
}

// Unsubscribe drops every local subscriber of a channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	return b.closeChannel(channel)
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.RLock()
	channels := make([]string, 0, len(b.subscriptions))
	for channel := range b.subscriptions {
		channels = append(channels, channel)
	}
	b.mu.RUnlock()

	var errs []error
	for _, channel := range channels {
		if err := b.closeChannel(channel); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing event bus: %w", err)
	}

	log.Info().Msg("Event bus closed")
	return nil
}
