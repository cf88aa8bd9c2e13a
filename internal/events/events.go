// Package events publishes canvas change notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Envelope is the wire form of one published event.
type Envelope struct {
	ID    string          `json:"id"`
	Event string          `json:"event"`
	At    time.Time       `json:"at"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes data into a fresh envelope.
func NewEnvelope(event string, data any) (Envelope, error) {
	env := Envelope{ID: uuid.NewString(), Event: event, At: time.Now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Envelope{}, fmt.Errorf("encode %s payload: %w", event, err)
		}
		env.Data = raw
	}
	return env, nil
}

// LogEmitter writes every event to a logger at debug level.
type LogEmitter struct {
	Logger *log.Logger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	e.Logger.Debug("event", "name", event, "data", data)
}

// RedisEmitter publishes events on a Redis pub/sub channel so other
// processes (a second API instance, the MCP process) can follow changes.
type RedisEmitter struct {
	client  *redis.Client
	channel string
	logger  *log.Logger
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return client, nil
}

func NewRedisEmitter(client *redis.Client, channel string, logger *log.Logger) *RedisEmitter {
	return &RedisEmitter{client: client, channel: channel, logger: logger}
}

// Emit publishes the event. Failures are logged; publishing never blocks
// the caller's write path for longer than one round trip.
func (e *RedisEmitter) Emit(ctx context.Context, event string, data any) {
	if err := e.Publish(ctx, event, data); err != nil {
		e.logger.Warn("event publish failed", "event", event, "err", err)
	}
}

func (e *RedisEmitter) Publish(ctx context.Context, event string, data any) error {
	env, err := NewEnvelope(event, data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return e.client.Publish(context.WithoutCancel(ctx), e.channel, payload).Err()
}

// Subscribe calls fn for every envelope on the channel until ctx is done.
// Malformed messages are logged and skipped.
func (e *RedisEmitter) Subscribe(ctx context.Context, fn func(Envelope)) error {
	sub := e.client.Subscribe(ctx, e.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", e.channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				e.logger.Warn("dropping malformed event", "err", err)
				continue
			}
			fn(env)
		}
	}
}

// Close releases the Redis client.
func (e *RedisEmitter) Close() error {
	return e.client.Close()
}
