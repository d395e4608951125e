package streaming

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"scamguard/pkg/logger"
)

// EventBus distributes stream messages to local subscribers and, when
// connected, to NATS
type EventBus struct {
	nats   *NATSPublisher
	logger *logger.Logger

	mu          sync.RWMutex
	subscribers map[string]*busSubscriber
}

type busSubscriber struct {
	ch  chan *Message
	sub *Subscription
}

// NewEventBus creates a new event bus. nats may be nil.
func NewEventBus(nats *NATSPublisher, log *logger.Logger) *EventBus {
	return &EventBus{
		nats:        nats,
		logger:      log.WithComponent("event-bus"),
		subscribers: make(map[string]*busSubscriber),
	}
}

// Publish sends msg to NATS (best effort) and every matching local subscriber
func (eb *EventBus) Publish(ctx context.Context, msg *Message) {
	if eb.nats.IsConnected() {
		var err error
		switch msg.Type {
		case MessageGuardianAlert:
			err = eb.nats.PublishGuardianAlert(ctx, msg.Alert)
		case MessageRiskEvent:
			err = eb.nats.PublishRiskEvent(ctx, msg.Event)
		}
		if err != nil {
			eb.logger.Warn().Err(err).Str("type", string(msg.Type)).Msg("failed to publish to NATS, using local broadcast only")
		}
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for id, s := range eb.subscribers {
		if s.sub != nil && !s.sub.Matches(msg) {
			continue
		}
		select {
		case s.ch <- msg:
		default:
			eb.logger.Debug().Str("subscriber", id).Msg("subscriber channel full, dropping message")
		}
	}
}

// Subscribe registers a local subscriber. The returned func unsubscribes and
// closes the channel.
func (eb *EventBus) Subscribe(sub *Subscription) (<-chan *Message, func()) {
	id := uuid.New().String()
	s := &busSubscriber{ch: make(chan *Message, 100), sub: sub}

	eb.mu.Lock()
	eb.subscribers[id] = s
	eb.mu.Unlock()

	eb.logger.Debug().Str("subscriber_id", id).Msg("new subscriber")

	unsubscribe := func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		if _, ok := eb.subscribers[id]; ok {
			close(s.ch)
			delete(eb.subscribers, id)
			eb.logger.Debug().Str("subscriber_id", id).Msg("subscriber removed")
		}
	}
	return s.ch, unsubscribe
}

// SubscriberCount returns the number of active subscribers
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// Close drops all subscribers and closes the NATS connection
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for id, s := range eb.subscribers {
		close(s.ch)
		delete(eb.subscribers, id)
	}

	if eb.nats != nil {
		eb.nats.Close()
	}
}
