package queue

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Message is one realtime event on its way to the fan-out hub.
type Message struct {
	Type string          `json:"type"`
	Room string          `json:"room"`
	Body json.RawMessage `json:"body"`
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Consume(ctx context.Context) (<-chan Message, error)
}

// InMemory is a channel-backed queue for single-process deployments and tests.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues a message.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for the hub.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-q.ch:
				out <- msg
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue bridges events between processes over Redis pub/sub. Every
// subscribed hub receives every message, so rooms stay consistent when the
// API runs behind more than one instance. A list would hand each message
// to a single consumer and starve the other hubs.
type RedisQueue struct {
	client  *redis.Client
	channel string
}

// NewRedisQueue builds a queue on a Redis pub/sub channel.
func NewRedisQueue(client *redis.Client, channel string) *RedisQueue {
	if channel == "" {
		channel = "schoolattend:events"
	}
	return &RedisQueue{client: client, channel: channel}
}

// Publish broadcasts a message to every subscriber.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.client.Publish(ctx, q.channel, payload).Err()
}

// Consume subscribes to the channel and streams messages until the
// context ends.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	sub := q.client.Subscribe(ctx, q.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	out := make(chan Message)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

var (
	_ Queue = (*InMemory)(nil)
	_ Queue = (*RedisQueue)(nil)
)
