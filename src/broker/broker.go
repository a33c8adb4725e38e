// Package broker defines the interface for message brokers and provides implementations.
// It carries the request/response traffic between the panel and the agent,
// and the navigation events that trigger a re-render.
package broker

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed broker.
var ErrClosed = errors.New("broker is closed")

// Broker abstracts message publishing and consumption.
// This interface supports both in-memory and distributed (Redpanda/Kafka) implementations.
type Broker interface {
	// Publish sends a message to a topic with an optional key for partitioning.
	// For in-memory broker, key is only carried through.
	// For Redpanda/Kafka, key is used for partition assignment.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe returns a channel for consuming messages from a topic.
	// The channel is closed when ctx is done or the broker is closed.
	// groupID is used for consumer group coordination in Kafka.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	// Close shuts down the broker connection gracefully.
	Close() error
}

// Message represents a consumed message from a broker.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	Timestamp int64
}
