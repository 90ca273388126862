// Package bus defines the messaging contract that ties the exchange,
// brokers, and clients together: a fan-out market-data topic plus
// point-to-point queues with correlation-id request/reply on top.
package bus

import (
	"context"
	"errors"
	"fmt"
)

// Well-known channel names. Processes derive the queues they bind to from
// their identity flags; nothing else about addressing is configurable.
const (
	// TopicMarketData is the fan-out topic the exchange broadcasts
	// instrument snapshots on. Delivery is at-most-once; subscribers that
	// join late miss earlier messages.
	TopicMarketData = "market.data"

	// QueueTrades is the point-to-point queue brokers send trade requests
	// to. The exchange is its sole consumer.
	QueueTrades = "exchange.trades"
)

// BrokerInbox is the queue a broker receives client preferences on.
func BrokerInbox(brokerID string) string {
	return fmt.Sprintf("broker.%s.inbox", brokerID)
}

// ClientInbox is the queue a client receives fill/no-fill notices on.
func ClientInbox(clientID string) string {
	return fmt.Sprintf("client.%s.inbox", clientID)
}

// Message is the envelope carried on point-to-point queues. Body holds the
// payload text: a field-named JSON record for structured payloads, or the
// plain outcome literal for trade replies.
type Message struct {
	CorrelationID string `json:"correlation_id,omitempty"`
	ReplyTo       string `json:"reply_to,omitempty"`
	Body          string `json:"body"`
}

// Errors shared by bus implementations.
var (
	// ErrClosed is returned by operations on a bus that has been closed.
	ErrClosed = errors.New("bus closed")
	// ErrNoReply is returned by Request when the context expires before a
	// correlation-matched reply arrives.
	ErrNoReply = errors.New("no reply within deadline")
)

// Bus is the transport contract. Both implementations (Redis-backed and
// in-process) provide the same semantics: topics fan out at-most-once to
// every current subscriber; queues deliver each message to exactly one
// consumer; Request pairs a reply to its request strictly by correlation
// id, discarding replies whose id does not match.
type Bus interface {
	// Publish broadcasts body on topic. Fire-and-forget.
	Publish(ctx context.Context, topic string, body string) error

	// Subscribe returns a channel of bodies broadcast on topic, starting
	// now. The channel closes when ctx is cancelled or the bus closes.
	Subscribe(ctx context.Context, topic string) (<-chan string, error)

	// Send enqueues msg on the named queue.
	Send(ctx context.Context, queue string, msg Message) error

	// Consume returns a channel of messages from the named queue. Each
	// message is delivered to exactly one consumer. The channel closes
	// when ctx is cancelled or the bus closes.
	Consume(ctx context.Context, queue string) (<-chan Message, error)

	// Request sends body to queue tagged with a fresh correlation id and
	// an ephemeral reply queue, then blocks until the matching reply
	// arrives or ctx expires.
	Request(ctx context.Context, queue string, body string) (string, error)

	// Close releases the bus. In-flight channels are closed.
	Close() error
}
