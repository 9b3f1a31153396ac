// Package event implements the core's typed, in-process publish/subscribe
// bus (component C1). Every event carries an id and a timestamp; delivery
// to a given subscriber preserves publish order for events of the same
// type. There is no ordering guarantee across subscribers, nor across types
// except among the types of one SubscribeMulti group.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Meta is embedded in every event type and carries the id/timestamp the
// spec requires of all bus events.
type Meta struct {
	ID        string
	Timestamp time.Time
}

// NewMeta stamps a fresh event id and the current time.
func NewMeta() Meta {
	return Meta{ID: uuid.NewString(), Timestamp: time.Now()}
}

// Event is implemented by every concrete event type below via the embedded
// Meta field's promoted EventMeta method.
type Event interface {
	EventMeta() Meta
}

// EventMeta returns the event's id/timestamp. Promoted to every type that
// embeds Meta, satisfying the Event interface.
func (m Meta) EventMeta() Meta { return m }

// TopicAdded is published the first time a topic is known to the system,
// before any TopicDataUpdated for that topic (spec §5 ordering guarantee,
// property P5).
type TopicAdded struct {
	Meta
	Topic      string
	SourceType string
	NSPath     string // empty if unbound at discovery time
}

// TopicDataUpdated is published once per written DataPoint after a
// successful (or attempted) store write.
type TopicDataUpdated struct {
	Meta
	Topic  string
	Value  interface{}
	Ts     time.Time
	Source string
}

// TopicVerified is published when an operator verifies a topic's binding.
type TopicVerified struct {
	Meta
	Topic string
	By    string
}

// TopicConfigurationUpdated is published when a TopicConfiguration is saved.
type TopicConfigurationUpdated struct {
	Meta
	Topic string
}

// BulkTopicsAdded is published when multiple topics are registered at once.
type BulkTopicsAdded struct {
	Meta
	Topics []string
}

// NamespaceStructureChanged is published whenever the composed UNS tree
// changes shape (instance or namespace added/removed, hierarchy edited).
type NamespaceStructureChanged struct {
	Meta
	Reason string
}

// TopicAutoMapped is published by the auto-mapper on a successful match.
type TopicAutoMapped struct {
	Meta
	Topic      string
	NSPath     string
	Confidence float64
}

// TopicAutoMappingFailed is published by the auto-mapper on a miss.
type TopicAutoMappingFailed struct {
	Meta
	Topic  string
	Reason string
}

// TopicDiscovery is published by the bulk persister when it discovers
// topics it has not seen before.
type TopicDiscovery struct {
	Meta
	Topics []string
}

// ConnectionDataReceived is the event-form path a connector may use instead
// of calling Pipeline.Ingest directly (spec §6, equivalent paths).
type ConnectionDataReceived struct {
	Meta
	Topic        string
	Value        interface{}
	Timestamp    time.Time
	Quality      string
	ConnectionID string
	SourceSystem string
	Metadata     map[string]string
}
