package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"prbuild-agent/src/logger"
)

// clientID identifies prbuild connections in broker logs and quotas.
const clientID = "prbuild"

// RedpandaBroker is a Kafka-compatible broker implementation using franz-go.
type RedpandaBroker struct {
	client    *kgo.Client
	brokers   []string
	logger    logger.Logger
	mu        sync.RWMutex
	consumers map[string]*kgo.Client // topic:groupID -> consumer client
	closed    bool
}

// NewRedpandaBroker creates a new RedpandaBroker instance.
// brokers is a slice of broker addresses (e.g., ["localhost:19092"]).
func NewRedpandaBroker(brokers []string, log logger.Logger) (*RedpandaBroker, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	return &RedpandaBroker{
		client:    client,
		brokers:   brokers,
		logger:    log,
		consumers: make(map[string]*kgo.Client),
	}, nil
}

// Publish sends a message to a topic with the specified key.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("publish to %s: %w", topic, ErrClosed)
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}

	if err := b.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

// Subscribe creates a consumer for the specified topic and consumer group.
// A new group starts at the end of the topic, so requests published while no
// agent was running are never replayed.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("subscribe to %s: %w", topic, ErrClosed)
	}

	consumerKey := fmt.Sprintf("%s:%s", topic, groupID)
	if _, exists := b.consumers[consumerKey]; exists {
		return nil, fmt.Errorf("consumer already exists for topic %s and group %s", topic, groupID)
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(b.brokers...),
		kgo.ClientID(clientID),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	b.consumers[consumerKey] = consumer

	msgChan := make(chan Message, subscriberBuffer)
	go b.consumeLoop(ctx, consumerKey, consumer, msgChan)

	return msgChan, nil
}

// consumeLoop continuously polls for messages and sends them to the channel.
func (b *RedpandaBroker) consumeLoop(ctx context.Context, key string, consumer *kgo.Client, msgChan chan<- Message) {
	defer close(msgChan)
	defer b.release(key, consumer)

	for {
		if ctx.Err() != nil {
			return
		}

		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}

		if errs := fetches.Errors(); len(errs) > 0 {
			for _, err := range errs {
				if ctx.Err() == nil {
					b.logger.Error("[RedpandaBroker] Fetch error on %s: %v", err.Topic, err.Err)
				}
			}
			continue
		}

		fetches.EachRecord(func(record *kgo.Record) {
			msg := Message{
				Topic:     record.Topic,
				Key:       string(record.Key),
				Value:     record.Value,
				Offset:    record.Offset,
				Partition: record.Partition,
				Timestamp: record.Timestamp.UnixMilli(),
			}

			select {
			case msgChan <- msg:
			case <-ctx.Done():
			}
		})
	}
}

// release forgets a consumer whose loop ended, unless Close already did.
func (b *RedpandaBroker) release(key string, consumer *kgo.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.consumers[key] == consumer {
		delete(b.consumers, key)
		consumer.Close()
	}
}

// Close shuts down the broker and all consumer connections.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, consumer := range b.consumers {
		consumer.Close()
	}
	b.consumers = make(map[string]*kgo.Client)

	b.client.Close()
	return nil
}
