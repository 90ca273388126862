package bus

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

const (
	topicBuffer = 64
	queueBuffer = 256
)

// MemBus is an in-process Bus backed by channels. It is the transport for
// single-process runs and for tests; semantics match the Redis bus.
type MemBus struct {
	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	topics  map[string]map[int]chan string
	queues  map[string]chan Message
	nextSub int
}

// NewMemBus creates an empty in-process bus.
func NewMemBus() *MemBus {
	return &MemBus{
		done:   make(chan struct{}),
		topics: make(map[string]map[int]chan string),
		queues: make(map[string]chan Message),
	}
}

// Publish fans body out to every current subscriber of topic. Subscribers
// whose buffers are full are skipped: delivery is at-most-once and a slow
// consumer must not stall the publisher.
func (b *MemBus) Publish(_ context.Context, topic string, body string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for _, sub := range b.topics[topic] {
		select {
		case sub <- body:
		default:
		}
	}
	return nil
}

// Subscribe registers a new subscriber channel on topic.
func (b *MemBus) Subscribe(ctx context.Context, topic string) (<-chan string, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	id := b.nextSub
	b.nextSub++
	sub := make(chan string, topicBuffer)
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[int]chan string)
	}
	b.topics[topic][id] = sub
	b.mu.Unlock()

	out := make(chan string)
	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.topics[topic], id)
			b.mu.Unlock()
			close(out)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case body := <-sub:
				select {
				case out <- body:
				case <-ctx.Done():
					return
				case <-b.done:
					return
				}
			}
		}
	}()
	return out, nil
}

// Send enqueues msg on queue, creating the queue on first use so messages
// sent before any consumer attaches are not lost.
func (b *MemBus) Send(ctx context.Context, queue string, msg Message) error {
	q, err := b.queue(queue)
	if err != nil {
		return err
	}
	select {
	case q <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrClosed
	}
}

// Consume attaches a consumer to queue. Messages are shared among
// consumers of the same queue: each is delivered exactly once.
func (b *MemBus) Consume(ctx context.Context, queue string) (<-chan Message, error) {
	q, err := b.queue(queue)
	if err != nil {
		return nil, err
	}
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case msg := <-q:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				case <-b.done:
					return
				}
			}
		}
	}()
	return out, nil
}

// Request sends body on queue with a fresh correlation id and blocks until
// the matching reply arrives on an ephemeral reply queue or ctx expires.
// Replies carrying any other correlation id are discarded.
func (b *MemBus) Request(ctx context.Context, queue string, body string) (string, error) {
	id := uuid.NewString()
	replyQueue := "reply." + id

	replies, err := b.Consume(ctx, replyQueue)
	if err != nil {
		return "", err
	}
	// A reply that arrives after the deadline recreates the queue entry on
	// send; that stray entry is empty and harmless for a process-lifetime bus.
	defer b.dropQueue(replyQueue)

	err = b.Send(ctx, queue, Message{CorrelationID: id, ReplyTo: replyQueue, Body: body})
	if err != nil {
		return "", err
	}

	for {
		select {
		case <-ctx.Done():
			return "", ErrNoReply
		case <-b.done:
			return "", ErrClosed
		case msg, ok := <-replies:
			if !ok {
				return "", ErrNoReply
			}
			if msg.CorrelationID != id {
				continue
			}
			return msg.Body, nil
		}
	}
}

// Close shuts the bus down. Subscriber and consumer channels close;
// further operations return ErrClosed.
func (b *MemBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)
	return nil
}

func (b *MemBus) queue(name string) (chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	q, ok := b.queues[name]
	if !ok {
		q = make(chan Message, queueBuffer)
		b.queues[name] = q
	}
	return q, nil
}

func (b *MemBus) dropQueue(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.queues, name)
}
