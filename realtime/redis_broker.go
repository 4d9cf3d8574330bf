package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBroker fans events out through Redis pub/sub so every API instance sees them
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker wraps an already connected client
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

// Publish sends payload on channel
func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe opens a pub/sub connection on channel and waits for the confirmation
func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (BrokerSubscription, error) {
	ps := b.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}

	sub := &redisSubscription{ps: ps, msgs: make(chan []byte, 64)}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	msgs chan []byte
	once sync.Once
}

func (s *redisSubscription) pump() {
	defer close(s.msgs)
	for msg := range s.ps.Channel() {
		s.msgs <- []byte(msg.Payload)
	}
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.msgs
}

// Close ends the pub/sub connection; Messages is closed once pending messages drain
func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.ps.Close()
	})
	return err
}
