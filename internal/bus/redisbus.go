package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// brpopPoll bounds each blocking pop so consumer loops notice context
// cancellation promptly.
const brpopPoll = time.Second

// RedisBus is the Redis-backed Bus used for multi-process runs. Topics map
// to Redis PUBLISH/SUBSCRIBE channels (at-most-once fan-out); queues map
// to lists driven by LPUSH and BRPOP.
type RedisBus struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisBus connects to the Redis instance at addr and verifies the
// connection with a ping.
func NewRedisBus(ctx context.Context, addr string, logger *slog.Logger) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &RedisBus{client: client, logger: logger}, nil
}

// Publish broadcasts body on the topic's pub/sub channel.
func (b *RedisBus) Publish(ctx context.Context, topic string, body string) error {
	if err := b.client.Publish(ctx, topic, body).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe opens a dedicated pub/sub connection for topic and forwards
// payloads until ctx is cancelled.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (<-chan string, error) {
	sub := b.client.Subscribe(ctx, topic)
	// Force the subscription to be established before returning, so the
	// caller does not silently miss broadcasts sent right after Subscribe.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Send serializes msg and pushes it onto the queue's list.
func (b *RedisBus) Send(ctx context.Context, queue string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message for %s: %w", queue, err)
	}
	if err := b.client.LPush(ctx, queue, payload).Err(); err != nil {
		return fmt.Errorf("send to %s: %w", queue, err)
	}
	return nil
}

// Consume pops messages off the queue's list. Malformed payloads are
// logged and dropped; a transport error is fatal to the consumer loop,
// which logs it and closes the channel.
func (b *RedisBus) Consume(ctx context.Context, queue string) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			res, err := b.client.BRPop(ctx, brpopPoll, queue).Result()
			if errors.Is(err, redis.Nil) {
				// Poll window elapsed with nothing queued; loop to
				// re-check the context.
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				b.logger.Error("queue consumer failed",
					slog.String("queue", queue),
					slog.String("error", err.Error()),
				)
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
				b.logger.Warn("dropping malformed message",
					slog.String("queue", queue),
					slog.String("error", err.Error()),
				)
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Request pushes body to queue with a fresh correlation id and blocks on
// an ephemeral reply list until the matching reply arrives or ctx expires.
// Replies with a different correlation id are discarded.
func (b *RedisBus) Request(ctx context.Context, queue string, body string) (string, error) {
	id := uuid.NewString()
	replyQueue := "reply." + id
	// The reply list is ours alone; remove it on the way out even when the
	// request context has already expired.
	defer func() {
		_ = b.client.Del(context.WithoutCancel(ctx), replyQueue).Err()
	}()

	err := b.Send(ctx, queue, Message{CorrelationID: id, ReplyTo: replyQueue, Body: body})
	if err != nil {
		return "", err
	}

	for {
		res, err := b.client.BRPop(ctx, brpopPoll, replyQueue).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ErrNoReply
			}
			return "", fmt.Errorf("await reply on %s: %w", replyQueue, err)
		}
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			b.logger.Warn("dropping malformed reply",
				slog.String("queue", replyQueue),
				slog.String("error", err.Error()),
			)
			continue
		}
		if msg.CorrelationID != id {
			continue
		}
		return msg.Body, nil
	}
}

// Close releases the underlying Redis client.
func (b *RedisBus) Close() error {
	return b.client.Close()
}
