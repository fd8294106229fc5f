package broadcast

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// subscriberBuffer bounds how far a slow consumer may lag before events
// are dropped for it.
const subscriberBuffer = 16

// Subscriber is one connected realtime consumer. Events arrive on the
// Events channel until Unsubscribe closes it.
type Subscriber struct {
	ID     uuid.UUID
	Events chan Event

	topics map[string]struct{}
}

// Hub fans events out to topic-scoped subscriber groups. Sends never block:
// a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[uuid.UUID]*Subscriber
	logger *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[uuid.UUID]*Subscriber),
		logger: logger,
	}
}

// Subscribe registers a new consumer with no topics joined yet.
func (h *Hub) Subscribe() *Subscriber {
	return &Subscriber{
		ID:     uuid.New(),
		Events: make(chan Event, subscriberBuffer),
		topics: make(map[string]struct{}),
	}
}

// Join adds the subscriber to a topic.
func (h *Hub) Join(sub *Subscriber, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[uuid.UUID]*Subscriber)
	}
	h.topics[topic][sub.ID] = sub
	sub.topics[topic] = struct{}{}
}

// Leave removes the subscriber from a topic.
func (h *Hub) Leave(sub *Subscriber, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(sub, topic)
}

func (h *Hub) leaveLocked(sub *Subscriber, topic string) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	delete(sub.topics, topic)
}

// Unsubscribe removes the subscriber from every topic and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for topic := range sub.topics {
		h.leaveLocked(sub, topic)
	}
	close(sub.Events)
}

// Publish delivers an event to every current subscriber of its topic.
// At-most-once, non-blocking: full buffers drop the event for that consumer.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.topics[event.Topic]
	if len(subs) == 0 {
		// No subscribers is a valid state, not an error.
		return
	}

	dropped := 0
	for _, sub := range subs {
		select {
		case sub.Events <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.WithFields(logrus.Fields{
			"topic":   event.Topic,
			"event":   event.Event,
			"dropped": dropped,
		}).Debug("Dropped events for slow subscribers")
	}
}

// TopicSubscribers reports how many consumers a topic currently has.
func (h *Hub) TopicSubscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
