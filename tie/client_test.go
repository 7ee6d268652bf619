package tie

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/tie-bridge/messaging"
)

// fakeSubscriber records subscriptions and lets tests deliver messages
// straight into the registered handlers.
type fakeSubscriber struct {
	handlers map[string]messaging.MessageHandler
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[string]messaging.MessageHandler)}
}

func (f *fakeSubscriber) Subscribe(subject string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	f.handlers[subject] = handler
	return &fakeSubscription{subscriber: f, subject: subject}, nil
}

func (f *fakeSubscriber) QueueSubscribe(subject, _ string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	return f.Subscribe(subject, handler)
}

func (f *fakeSubscriber) Close() error { return nil }

func (f *fakeSubscriber) deliver(ctx context.Context, subject string, data []byte) error {
	handler, ok := f.handlers[subject]
	if !ok {
		return nil
	}
	return handler(ctx, &messaging.Message{Subject: subject, Data: data})
}

type fakeSubscription struct {
	subscriber *fakeSubscriber
	subject    string
}

func (s *fakeSubscription) Unsubscribe() error {
	delete(s.subscriber.handlers, s.subject)
	return nil
}

func (s *fakeSubscription) Subject() string { return s.subject }

func (s *fakeSubscription) IsValid() bool {
	_, ok := s.subscriber.handlers[s.subject]
	return ok
}

func TestClient_AddFileReputationChangeCallback(t *testing.T) {
	subscriber := newFakeSubscriber()
	client := NewClient(subscriber)
	handler := &captureHandler{}

	sub, err := client.AddFileReputationChangeCallback(handler)
	require.NoError(t, err)
	assert.Equal(t, messaging.SubjectFileRepChange, sub.Subject())

	err = subscriber.deliver(context.Background(), messaging.SubjectFileRepChange,
		[]byte(`{"newReputations": {"reputations": {"1": {"trustLevel": 99}}}}`))

	require.NoError(t, err)
	require.True(t, handler.called)
	assert.Contains(t, handler.change, PropNewReputations)
}

func TestClient_AddCertificateReputationChangeCallback(t *testing.T) {
	subscriber := newFakeSubscriber()
	client := NewClient(subscriber)
	handler := &captureHandler{}

	_, err := client.AddCertificateReputationChangeCallback(handler)
	require.NoError(t, err)

	err = subscriber.deliver(context.Background(), messaging.SubjectCertRepChange,
		[]byte(`{"publicKeySha1": "AAEC"}`))

	require.NoError(t, err)
	require.True(t, handler.called)
	assert.Equal(t, "000102", handler.change[PropPublicKeySHA1])
}

func TestClient_Close(t *testing.T) {
	subscriber := newFakeSubscriber()
	client := NewClient(subscriber)

	fileSub, err := client.AddFileReputationChangeCallback(&captureHandler{})
	require.NoError(t, err)
	certSub, err := client.AddCertificateReputationChangeCallback(&captureHandler{})
	require.NoError(t, err)

	require.NoError(t, client.Close())

	assert.False(t, fileSub.IsValid())
	assert.False(t, certSub.IsValid())
}
