package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/tie-bridge/internal/history"
	"github.com/telhawk-systems/tie-bridge/internal/logging"
	"github.com/telhawk-systems/tie-bridge/internal/repcache"
	"github.com/telhawk-systems/tie-bridge/internal/sink"
	"github.com/telhawk-systems/tie-bridge/messaging"
	"github.com/telhawk-systems/tie-bridge/tie"
)

type fakeCache struct {
	digest string
	entry  *repcache.Entry
	err    error
}

func (f *fakeCache) Put(_ context.Context, digest string, entry *repcache.Entry) error {
	f.digest = digest
	f.entry = entry
	return f.err
}

type fakeStore struct {
	change *history.Change
	err    error
}

func (f *fakeStore) Record(_ context.Context, c *history.Change) error {
	f.change = c
	return f.err
}

type fakeIndexer struct {
	doc *sink.ChangeDocument
	err error
}

func (f *fakeIndexer) IndexChange(_ context.Context, doc *sink.ChangeDocument) error {
	f.doc = doc
	return f.err
}

func testLogger() *logging.Logger {
	return logging.New(slog.LevelError, "text")
}

// fileChange builds a normalized file change the way the callback would
// deliver it.
func fileChange(t *testing.T, digest string) tie.ReputationChange {
	t.Helper()

	payload := fmt.Sprintf(`{
		"hashes": {"sha1": %q},
		"newReputations": {"reputations": {"1": {"providerId": 1, "trustLevel": 99, "createDate": 1480455704}}},
		"oldReputations": {"reputations": {"1": {"providerId": 1, "trustLevel": 85, "createDate": 1480455704}}},
		"updateTime": 1481219581
	}`, digest)

	var change tie.ReputationChange
	require.NoError(t, json.Unmarshal([]byte(payload), &change))
	require.NoError(t, tie.Normalize(change))
	return change
}

func TestWatcher_FansOutToAllSinks(t *testing.T) {
	cache := &fakeCache{}
	store := &fakeStore{}
	indexer := &fakeIndexer{}
	w := New(testLogger(), cache, store, indexer)

	digest := gofakeit.Regex("[a-f0-9]{40}")
	change := fileChange(t, digest)
	event := &messaging.Message{Subject: messaging.SubjectFileRepChange}

	require.NoError(t, w.OnReputationChange(context.Background(), change, event))

	require.NotNil(t, cache.entry)
	assert.Equal(t, digest, cache.digest)
	assert.Equal(t, int64(1481219581), cache.entry.UpdateTime)
	assert.Equal(t, tie.TrustKnownTrusted, cache.entry.Reputations["1"].TrustLevel)

	require.NotNil(t, store.change)
	assert.Equal(t, KindFile, store.change.Kind)
	assert.Equal(t, digest, store.change.PrimaryHash)
	assert.JSONEq(t, mustJSON(t, change), string(store.change.Document))

	require.NotNil(t, indexer.doc)
	assert.Equal(t, messaging.SubjectFileRepChange, indexer.doc.Subject)
	assert.Equal(t, digest, indexer.doc.Hashes[tie.HashSHA1])
	assert.Equal(t, tie.TrustMostLikelyTrusted, indexer.doc.OldReputations["1"].TrustLevel)
}

func TestWatcher_SinkFailureDoesNotStopOthers(t *testing.T) {
	cache := &fakeCache{err: errors.New("redis down")}
	store := &fakeStore{err: errors.New("pg down")}
	indexer := &fakeIndexer{}
	w := New(testLogger(), cache, store, indexer)

	change := fileChange(t, gofakeit.Regex("[a-f0-9]{40}"))
	event := &messaging.Message{Subject: messaging.SubjectFileRepChange}

	require.NoError(t, w.OnReputationChange(context.Background(), change, event),
		"sink failures must not surface as handler errors")
	assert.NotNil(t, indexer.doc, "index sink still runs after earlier failures")
}

func TestWatcher_NilSinks(t *testing.T) {
	w := New(testLogger(), nil, nil, nil)
	change := fileChange(t, gofakeit.Regex("[a-f0-9]{40}"))

	err := w.OnReputationChange(context.Background(), change, &messaging.Message{
		Subject: messaging.SubjectFileRepChange,
	})

	require.NoError(t, err)
}

func TestWatcher_SkipsCacheWithoutDigest(t *testing.T) {
	cache := &fakeCache{}
	w := New(testLogger(), cache, nil, nil)

	change := tie.ReputationChange{"updateTime": float64(1481219581)}
	err := w.OnReputationChange(context.Background(), change, &messaging.Message{
		Subject: messaging.SubjectCertRepChange,
	})

	require.NoError(t, err)
	assert.Nil(t, cache.entry, "no digest, nothing to key the cache on")
}

func TestWatcher_CertificateChange(t *testing.T) {
	indexer := &fakeIndexer{}
	w := New(testLogger(), nil, nil, indexer)

	change := tie.ReputationChange{
		tie.PropPublicKeySHA1: "3ac8a21db9ba46d83549ff1cc5df45c1236f1316",
		tie.PropUpdateTime:    float64(1481219581),
	}
	event := &messaging.Message{Subject: messaging.SubjectCertRepChange}

	require.NoError(t, w.OnReputationChange(context.Background(), change, event))

	require.NotNil(t, indexer.doc)
	assert.Equal(t, KindCert, indexer.doc.Kind)
	assert.Equal(t, "3ac8a21db9ba46d83549ff1cc5df45c1236f1316", indexer.doc.PublicKeySHA1)
}

func TestChangeKind(t *testing.T) {
	tests := []struct {
		name     string
		change   tie.ReputationChange
		expected string
	}{
		{
			name:     "certificate change",
			change:   tie.ReputationChange{tie.PropPublicKeySHA1: "00"},
			expected: KindCert,
		},
		{
			name:     "file change",
			change:   tie.ReputationChange{tie.PropHashes: map[string]any{}},
			expected: KindFile,
		},
		{
			name:     "empty change defaults to file",
			change:   tie.ReputationChange{},
			expected: KindFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ChangeKind(tt.change))
		})
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
