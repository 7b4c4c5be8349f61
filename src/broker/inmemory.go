package broker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// subscriber channel buffer; a slow consumer beyond this blocks publishers.
const inMemoryBuffer = 100

// InMemoryBroker is a process-local Broker used in single-process mode.
type InMemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string][]chan Message
	offset int64
	closed bool
}

// NewInMemoryBroker creates a new in-memory broker.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subs: make(map[string][]chan Message),
	}
}

// Publish delivers the message to every current subscriber of the topic.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("broker is closed")
	}
	b.offset++
	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    b.offset,
		Timestamp: time.Now().UnixMilli(),
	}
	subs := make([]chan Message, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a consumer channel for the topic. groupID is ignored:
// every in-memory subscriber sees every message.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	ch := make(chan Message, inMemoryBuffer)
	b.subs[topic] = append(b.subs[topic], ch)

	go func() {
		<-ctx.Done()
		b.unsubscribe(topic, ch)
	}()

	return ch, nil
}

func (b *InMemoryBroker) unsubscribe(topic string, ch chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	subs := b.subs[topic]
	for i, c := range subs {
		if c == ch {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			close(c)
			return
		}
	}
}

// Close shuts down the broker and closes all subscriber channels.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, subs := range b.subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subs = make(map[string][]chan Message)
	return nil
}
