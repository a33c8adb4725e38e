package broker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 100

// InMemoryBroker delivers every message to every live subscriber of its topic.
// Used when no Redpanda brokers are configured and in tests.
type InMemoryBroker struct {
	mu      sync.RWMutex
	subs    map[string][]*subscription
	offsets map[string]int64
	closed  bool
}

type subscription struct {
	ch   chan Message
	done chan struct{}
	once sync.Once
	mu   sync.Mutex
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subs:    make(map[string][]*subscription),
		offsets: make(map[string]int64),
	}
}

// Publish blocks until every current subscriber has buffered the message or
// ctx is done.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("publish to %s: %w", topic, ErrClosed)
	}
	offset := b.offsets[topic]
	b.offsets[topic] = offset + 1
	subs := append([]*subscription(nil), b.subs[topic]...)
	b.mu.Unlock()

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    offset,
		Timestamp: time.Now().UnixMilli(),
	}
	for _, sub := range subs {
		if err := sub.send(ctx, msg); err != nil {
			return fmt.Errorf("publish to %s: %w", topic, err)
		}
	}
	return nil
}

// Subscribe registers a new subscriber. groupID is ignored; every subscriber
// sees every message published after it subscribed.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("subscribe to %s: %w", topic, ErrClosed)
	}

	sub := &subscription{
		ch:   make(chan Message, subscriberBuffer),
		done: make(chan struct{}),
	}
	b.subs[topic] = append(b.subs[topic], sub)

	go func() {
		select {
		case <-ctx.Done():
			b.remove(topic, sub)
			sub.close()
		case <-sub.done:
		}
	}()

	return sub.ch, nil
}

func (b *InMemoryBroker) remove(topic string, target *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, sub := range subs {
		if sub == target {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Close closes every subscriber channel. Further calls fail with ErrClosed.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[string][]*subscription)
	b.mu.Unlock()

	for _, topicSubs := range subs {
		for _, sub := range topicSubs {
			sub.close()
		}
	}
	return nil
}

func (s *subscription) send(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	default:
	}

	select {
	case s.ch <- msg:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close wakes any blocked sender before closing the channel, so a send never
// races with close.
func (s *subscription) close() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}
