// Package messaging provides abstractions for the message fabric the TIE
// bridge attaches to. It defines interfaces that allow the library and its
// consumers to publish and subscribe without being coupled to a specific
// broker implementation. Connection lifecycle, delivery guarantees, and
// reconnection are owned by the implementation, not by callers.
package messaging

import (
	"context"
	"time"
)

// Message represents a single event delivered by the fabric.
type Message struct {
	// Subject is the topic the message was published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// ID is the broker-assigned message identifier, if any.
	ID string

	// Reply is an optional subject for request/reply patterns.
	Reply string

	// Metadata contains optional key-value pairs from message headers.
	Metadata map[string]string

	// Timestamp is when the message was received by this client.
	Timestamp time.Time
}

// MessageHandler processes a received message.
// Return an error to indicate processing failure; the error is reported
// through the implementation's error path, not redelivered.
type MessageHandler func(ctx context.Context, msg *Message) error

// Subscription represents an active subscription to a subject.
type Subscription interface {
	// Unsubscribe stops delivery of messages on this subscription.
	Unsubscribe() error

	// Subject returns the subject this subscription is listening to.
	Subject() string

	// IsValid reports whether the subscription is still active.
	IsValid() bool
}

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish sends a fire-and-forget message to the specified subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Request sends a message and waits for a response.
	Request(ctx context.Context, subject string, data []byte, timeout time.Duration) (*Message, error)

	// Close releases any resources held by the publisher.
	Close() error
}

// Subscriber subscribes to messages on subjects.
type Subscriber interface {
	// Subscribe creates a fan-out subscription: every subscriber on the
	// subject receives every message.
	Subscribe(subject string, handler MessageHandler) (Subscription, error)

	// QueueSubscribe creates a queue subscription. Messages are
	// load-balanced across subscribers in the same queue group, so each
	// message is processed once per group.
	QueueSubscribe(subject, queue string, handler MessageHandler) (Subscription, error)

	// Close releases resources and unsubscribes all active subscriptions.
	Close() error
}

// Client combines Publisher and Subscriber.
type Client interface {
	Publisher
	Subscriber

	// Drain gracefully closes the connection, allowing in-flight
	// messages to complete.
	Drain() error

	// IsConnected reports whether the client is connected to the broker.
	IsConnected() bool
}
