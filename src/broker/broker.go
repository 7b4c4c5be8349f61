// Package broker abstracts the message plane carrying build requests between
// the webhook listener and build agents.
package broker

import "context"

// Broker abstracts message publishing and consumption. The in-memory
// implementation serves local single-process mode; the Redpanda one serves
// distributed mode.
type Broker interface {
	// Publish sends a message to a topic. key is used for partition
	// assignment on Kafka-compatible brokers and ignored in-memory.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe returns a channel of messages for a topic. groupID
	// coordinates consumer groups on Kafka-compatible brokers and is
	// ignored in-memory. The channel closes when ctx is cancelled or the
	// broker is closed.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	// Close shuts down the broker connection gracefully.
	Close() error
}

// Message is one consumed record.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	Timestamp int64
}
