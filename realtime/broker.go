package realtime

import (
	"context"
	"errors"
	"sync"
)

// ErrBrokerClosed is returned when publishing to or subscribing on a closed broker
var ErrBrokerClosed = errors.New("realtime: broker closed")

// Broker moves serialized events between processes
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (BrokerSubscription, error)
}

// BrokerSubscription is one live subscription to a broker channel
type BrokerSubscription interface {
	// Messages is closed once the subscription ends
	Messages() <-chan []byte
	Close() error
}

// MemoryBroker is an in-process Broker for single-instance deployments and tests
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	closed bool
}

// NewMemoryBroker creates an empty in-process broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[*memorySubscription]struct{})}
}

type memorySubscription struct {
	broker  *MemoryBroker
	channel string
	msgs    chan []byte

	mu     sync.Mutex
	closed bool
}

// Publish delivers payload to every current subscriber of channel
func (b *MemoryBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBrokerClosed
	}
	targets := make([]*memorySubscription, 0, len(b.subs[channel]))
	for s := range b.subs[channel] {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if err := s.deliver(ctx, append([]byte(nil), payload...)); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a new subscriber on channel
func (b *MemoryBroker) Subscribe(ctx context.Context, channel string) (BrokerSubscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}

	s := &memorySubscription{
		broker:  b,
		channel: channel,
		msgs:    make(chan []byte, 64),
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memorySubscription]struct{})
	}
	b.subs[channel][s] = struct{}{}
	return s, nil
}

// Subscribers reports how many subscriptions channel currently has
func (b *MemoryBroker) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

// Close ends every subscription
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	var all []*memorySubscription
	for _, set := range b.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	b.closed = true
	b.mu.Unlock()

	for _, s := range all {
		_ = s.Close()
	}
	return nil
}

func (s *memorySubscription) Messages() <-chan []byte {
	return s.msgs
}

// deliver blocks until the message is buffered; a closed subscription swallows it
func (s *memorySubscription) deliver(ctx context.Context, msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.msgs <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *memorySubscription) Close() error {
	s.broker.mu.Lock()
	delete(s.broker.subs[s.channel], s)
	if len(s.broker.subs[s.channel]) == 0 {
		delete(s.broker.subs, s.channel)
	}
	s.broker.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.msgs)
	}
	return nil
}
