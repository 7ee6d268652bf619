package tie

import (
	"sync"

	"github.com/telhawk-systems/tie-bridge/messaging"
)

// Client registers reputation change handlers against the TIE subjects on
// the fabric. It owns only the registrations; transport concerns
// (connection lifecycle, delivery, retry, authentication) stay with the
// messaging client.
type Client struct {
	subscriber messaging.Subscriber

	mu   sync.Mutex
	subs []messaging.Subscription
}

// NewClient creates a Client on top of an already connected subscriber.
func NewClient(subscriber messaging.Subscriber) *Client {
	return &Client{subscriber: subscriber}
}

// AddFileReputationChangeCallback registers handler to receive normalized
// file reputation change events.
func (c *Client) AddFileReputationChangeCallback(handler ReputationChangeHandler) (messaging.Subscription, error) {
	return c.add(messaging.SubjectFileRepChange, handler)
}

// AddCertificateReputationChangeCallback registers handler to receive
// normalized certificate reputation change events.
func (c *Client) AddCertificateReputationChangeCallback(handler ReputationChangeHandler) (messaging.Subscription, error) {
	return c.add(messaging.SubjectCertRepChange, handler)
}

func (c *Client) add(subject string, handler ReputationChangeHandler) (messaging.Subscription, error) {
	callback := NewReputationChangeCallback(handler)

	sub, err := c.subscriber.Subscribe(subject, callback.Handle)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	return sub, nil
}

// Close unsubscribes every registration made through this client. The
// underlying messaging client is left open; its owner closes it.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.subs = nil
	return firstErr
}
