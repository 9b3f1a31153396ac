// Package model holds the shared data-plane types (spec §3) that flow
// between the stream processor, bulk persister, stores, and topic-browser
// cache. They are plain data: no behavior beyond simple derivations.
package model

import "time"

// DataPoint is one measurement. Immutable after creation — components that
// receive a DataPoint never mutate it, only pass references along.
type DataPoint struct {
	Topic     string
	Value     interface{}
	Timestamp time.Time
	Source    string // source system
	Quality   string
	Metadata  map[string]string
}

// TopicConfiguration is the persistent binding of a Topic, owned
// exclusively by its repository.
type TopicConfiguration struct {
	ID          string
	Topic       string
	SourceType  string
	Active      bool
	NSPath      string // empty if unbound
	DisplayName string
	CreatedAt   time.Time
	ModifiedAt  time.Time
	Metadata    map[string]string
}

// TopicInfo is the topic-browser projection: derived state, never the
// source of truth.
type TopicInfo struct {
	Topic             string
	NSPath            string
	DisplayName       string
	Description       string
	Source            string
	Active            bool
	LastDataTimestamp time.Time
	Configured        bool
}
