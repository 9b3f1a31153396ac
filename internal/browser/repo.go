package browser

import (
	"context"

	"github.com/thomassorensen2650/unsinfra/internal/model"
)

// TopicConfigurationRepository is the sole owner of TopicConfiguration
// records (spec §6 external contract). Implementations must be safe under
// concurrent read access and are expected to publish TopicConfigurationUpdated
// on the bus after a successful Save, the same way a NamespaceStructureService
// publishes NamespaceStructureChanged after a mutation.
type TopicConfigurationRepository interface {
	GetByTopic(ctx context.Context, topic string) (model.TopicConfiguration, bool, error)
	GetAll(ctx context.Context) ([]model.TopicConfiguration, error)
	Save(ctx context.Context, cfg model.TopicConfiguration) error
	Delete(ctx context.Context, id string) error
	Verify(ctx context.Context, id, by string) error
}

// NotificationKind distinguishes the local-only structural-change signals
// UpdateTopic/BulkReassign raise. TopicsAdded/TopicsRemoved/TopicsUpdated/
// TopicsAutoMapped are not in the bus's closed event set (spec §4.1), so
// they are delivered via an optional in-process callback instead of
// event.Bus.Publish.
type NotificationKind int

const (
	TopicsAdded NotificationKind = iota
	TopicsRemoved
	TopicsUpdated
	TopicsAutoMapped
)

// Notification is what ChangeHandler receives.
type Notification struct {
	Kind   NotificationKind
	Topics []string
}
