package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gatsishub/gatsishub-api/logger"
	"go.uber.org/zap"
)

// subscriberBuffer is how many undelivered events one subscriber may hold
const subscriberBuffer = 128

// Hub publishes change events and multiplexes local subscribers onto
// one broker subscription per (table, key) pair.
type Hub struct {
	broker Broker

	mu    sync.Mutex
	feeds map[string]*feed
}

type feed struct {
	channel     string
	sub         BrokerSubscription
	subscribers map[*Subscription]struct{}
}

// Subscription is one local consumer of a feed
type Subscription struct {
	hub    *Hub
	feed   *feed
	events chan Event
	once   sync.Once
}

var hub *Hub

// NewHub creates a hub over broker
func NewHub(broker Broker) *Hub {
	return &Hub{broker: broker, feeds: make(map[string]*feed)}
}

// InitHub sets the process-wide hub
func InitHub(broker Broker) *Hub {
	hub = NewHub(broker)
	return hub
}

// GetHub returns the process-wide hub
func GetHub() *Hub {
	return hub
}

// SetHub replaces the process-wide hub (primarily for testing)
func SetHub(h *Hub) {
	hub = h
}

// Publish sends ev on the unfiltered table channel and, when ev has a key,
// on the filtered channel for that key.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := h.broker.Publish(ctx, Channel(ev.Table, ""), payload); err != nil {
		return err
	}
	if ev.Key != "" {
		if err := h.broker.Publish(ctx, Channel(ev.Table, ev.Key), payload); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe attaches a local subscriber to table, filtered to key when key is non-empty.
// The broker subscription is opened on first use and shared afterwards.
func (h *Hub) Subscribe(ctx context.Context, table, key string) (*Subscription, error) {
	channel := Channel(table, key)

	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.feeds[channel]
	if !ok {
		sub, err := h.broker.Subscribe(ctx, channel)
		if err != nil {
			return nil, err
		}
		f = &feed{
			channel:     channel,
			sub:         sub,
			subscribers: make(map[*Subscription]struct{}),
		}
		h.feeds[channel] = f
		go h.pump(f)
	}

	s := &Subscription{
		hub:    h,
		feed:   f,
		events: make(chan Event, subscriberBuffer),
	}
	f.subscribers[s] = struct{}{}
	return s, nil
}

// ActiveFeeds reports how many broker subscriptions the hub holds
func (h *Hub) ActiveFeeds() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.feeds)
}

func (h *Hub) pump(f *feed) {
	for payload := range f.sub.Messages() {
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			logger.Log.Warn("Dropping undecodable change event",
				zap.String("channel", f.channel),
				zap.Error(err),
			)
			continue
		}

		h.mu.Lock()
		for s := range f.subscribers {
			select {
			case s.events <- ev:
			default:
				logger.Log.Warn("Subscriber buffer full, dropping change event",
					zap.String("channel", f.channel),
					zap.String("id", ev.ID),
				)
			}
		}
		h.mu.Unlock()
	}

	// broker side ended; close whatever subscribers remain
	h.mu.Lock()
	if h.feeds[f.channel] == f {
		delete(h.feeds, f.channel)
	}
	for s := range f.subscribers {
		delete(f.subscribers, s)
		s.closeEvents()
	}
	h.mu.Unlock()
}

// Events delivers the subscription's events; it is closed by Close
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close detaches the subscriber and releases the broker subscription when it was the last one
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	_, attached := s.feed.subscribers[s]
	if attached {
		delete(s.feed.subscribers, s)
		s.closeEvents()
	}

	var release BrokerSubscription
	if attached && len(s.feed.subscribers) == 0 && h.feeds[s.feed.channel] == s.feed {
		delete(h.feeds, s.feed.channel)
		release = s.feed.sub
	}
	h.mu.Unlock()

	if release != nil {
		if err := release.Close(); err != nil {
			logger.Log.Warn("Failed to close broker subscription",
				zap.String("channel", s.feed.channel),
				zap.Error(err),
			)
		}
	}
}

func (s *Subscription) closeEvents() {
	s.once.Do(func() { close(s.events) })
}
