// Package watcher implements the tiewatch reputation change handler: it
// logs each normalized change and fans it out to the configured sinks.
package watcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/telhawk-systems/tie-bridge/internal/history"
	"github.com/telhawk-systems/tie-bridge/internal/logging"
	"github.com/telhawk-systems/tie-bridge/internal/metrics"
	"github.com/telhawk-systems/tie-bridge/internal/repcache"
	"github.com/telhawk-systems/tie-bridge/internal/sink"
	"github.com/telhawk-systems/tie-bridge/messaging"
	"github.com/telhawk-systems/tie-bridge/tie"
)

// Artifact kinds, derived from the shape of a change.
const (
	KindFile = "file"
	KindCert = "cert"
)

// LatestCache stores the current reputation state per artifact.
type LatestCache interface {
	Put(ctx context.Context, digest string, entry *repcache.Entry) error
}

// HistoryStore appends changes to the history log.
type HistoryStore interface {
	Record(ctx context.Context, c *history.Change) error
}

// ChangeIndexer indexes change documents for search.
type ChangeIndexer interface {
	IndexChange(ctx context.Context, doc *sink.ChangeDocument) error
}

// Watcher receives normalized reputation changes and writes them to each
// configured sink. Any sink may be nil. A failing sink is logged and
// counted; it never stops the other sinks or the event stream.
type Watcher struct {
	logger  *logging.Logger
	cache   LatestCache
	store   HistoryStore
	indexer ChangeIndexer
}

// New creates a Watcher. Nil sinks are skipped at dispatch time.
func New(logger *logging.Logger, cache LatestCache, store HistoryStore, indexer ChangeIndexer) *Watcher {
	return &Watcher{
		logger:  logger.With(logging.Component("watcher")),
		cache:   cache,
		store:   store,
		indexer: indexer,
	}
}

// OnReputationChange implements tie.ReputationChangeHandler.
func (w *Watcher) OnReputationChange(ctx context.Context, change tie.ReputationChange, event *messaging.Message) error {
	start := time.Now()
	defer func() {
		metrics.HandlerDuration.Observe(time.Since(start).Seconds())
	}()
	metrics.EventsReceived.WithLabelValues(event.Subject).Inc()

	kind := ChangeKind(change)
	_, digest := tie.PrimaryHash(change)

	newReps, err := tie.DecodeReputations(change[tie.PropNewReputations])
	if err != nil {
		w.logger.Warn("undecodable new reputations", logging.Error(err), logging.Subject(event.Subject))
	}
	oldReps, err := tie.DecodeReputations(change[tie.PropOldReputations])
	if err != nil {
		w.logger.Warn("undecodable old reputations", logging.Error(err), logging.Subject(event.Subject))
	}

	updateTime := asEpochSeconds(change[tie.PropUpdateTime])
	pubKeySHA1, _ := change[tie.PropPublicKeySHA1].(string)

	w.logger.Info("reputation change",
		logging.Subject(event.Subject),
		slog.String("kind", kind),
		logging.Hash(digest),
		slog.Int("providers", len(newReps)),
		slog.Int64("update_time", updateTime),
	)

	if w.cache != nil && digest != "" {
		entry := &repcache.Entry{
			Hashes:      stringHashes(change),
			Reputations: newReps,
			UpdateTime:  updateTime,
		}
		w.write(ctx, "cache", func(ctx context.Context) error {
			return w.cache.Put(ctx, digest, entry)
		})
	}

	if w.store != nil {
		document, err := json.Marshal(change)
		if err != nil {
			w.logger.Error("encode change for history", logging.Error(err))
			metrics.SinkErrors.WithLabelValues("history").Inc()
		} else {
			record := &history.Change{
				Kind:        kind,
				PrimaryHash: digest,
				UpdateTime:  updateTime,
				Document:    document,
			}
			w.write(ctx, "history", func(ctx context.Context) error {
				return w.store.Record(ctx, record)
			})
		}
	}

	if w.indexer != nil {
		doc := &sink.ChangeDocument{
			Subject:        event.Subject,
			Kind:           kind,
			Hashes:         stringHashes(change),
			PublicKeySHA1:  pubKeySHA1,
			NewReputations: newReps,
			OldReputations: oldReps,
			UpdateTime:     updateTime,
		}
		w.write(ctx, "index", func(ctx context.Context) error {
			return w.indexer.IndexChange(ctx, doc)
		})
	}

	return nil
}

func (w *Watcher) write(ctx context.Context, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		w.logger.Error("sink write failed", slog.String("sink", name), logging.Error(err))
		metrics.SinkErrors.WithLabelValues(name).Inc()
		return
	}
	metrics.SinkWrites.WithLabelValues(name).Inc()
}

// ChangeKind reports whether a normalized change describes a file or a
// certificate. A top-level public key SHA-1 only appears on certificate
// changes.
func ChangeKind(change tie.ReputationChange) string {
	if _, ok := change[tie.PropPublicKeySHA1]; ok {
		return KindCert
	}
	return KindFile
}

// stringHashes extracts the hashes mapping with digests as strings.
// Non-string values are skipped.
func stringHashes(change tie.ReputationChange) map[string]string {
	v, ok := change[tie.PropHashes]
	if !ok {
		return nil
	}
	hashes, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	out := make(map[string]string, len(hashes))
	for algo, dv := range hashes {
		if d, ok := dv.(string); ok {
			out[algo] = d
		}
	}
	return out
}

// asEpochSeconds coerces the JSON number shapes updateTime arrives in.
func asEpochSeconds(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
