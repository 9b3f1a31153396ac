package persist

import (
	"context"

	"github.com/thomassorensen2650/unsinfra/internal/model"
)

// RealtimeStore holds exactly one row per topic: its latest value. Spec §6
// external contract.
type RealtimeStore interface {
	Put(ctx context.Context, dp model.DataPoint) error
	GetLatest(ctx context.Context, topic string) (model.DataPoint, bool, error)
}

// HistoricalStore is an append-only log of every DataPoint written. Spec §6
// external contract.
type HistoricalStore interface {
	Put(ctx context.Context, dp model.DataPoint) error
	PutBulk(ctx context.Context, dps []model.DataPoint) error
}

// TopicKnown is the read-only slice of the topic-browser cache the
// persister needs to tell new topics from already-seen ones. Defined on the
// consumer side (persist), satisfied by browser.Cache without browser ever
// needing to import persist.
type TopicKnown interface {
	Get(topic string) (model.TopicInfo, bool)
}
