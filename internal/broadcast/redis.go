package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const channelPrefix = "broadcast:"

// RedisBroadcaster publishes events through Redis pub/sub and folds received
// messages into the local hub, so a dispatch handled on one instance reaches
// websocket subscribers connected to any other. Publishing is fire-and-forget
// from the caller's perspective; failures are logged, never awaited on.
type RedisBroadcaster struct {
	hub         *Hub
	redisClient *redis.Client
	logger      *logrus.Logger
}

func NewRedisBroadcaster(hub *Hub, redisClient *redis.Client, logger *logrus.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{
		hub:         hub,
		redisClient: redisClient,
		logger:      logger,
	}
}

// Publish sends one event to the topic's Redis channel. The event reaches
// local subscribers through the Run loop like any remote one.
func (b *RedisBroadcaster) Publish(ctx context.Context, topic, eventType string, data any) {
	event := Event{
		Topic:     topic,
		Event:     eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.WithError(err).WithField("topic", topic).Error("Failed to marshal broadcast event")
		return
	}

	if err := b.redisClient.Publish(ctx, channelPrefix+topic, payload).Err(); err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"topic": topic,
			"event": eventType,
		}).Error("Failed to publish broadcast event")
	}
}

// Run subscribes to every broadcast channel and feeds the local hub until
// ctx is cancelled.
func (b *RedisBroadcaster) Run(ctx context.Context) error {
	pubsub := b.redisClient.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to broadcast channels: %w", err)
	}

	b.logger.Info("Broadcast bridge started")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping broadcast bridge.")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.WithError(err).Error("Failed to unmarshal broadcast event")
				continue
			}
			b.hub.Publish(event)
		}
	}
}
