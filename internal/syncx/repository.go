package syncx

import "context"

// EntityRepository describes the remote row store collaborator: row-level
// upsert, soft delete, and query-by-version-greater-than with a limit and
// ascending order.
type EntityRepository interface {
	// Upsert writes row keyed by entity id, unconditionally overwriting any
	// existing row. No version comparison is performed: the last push wins.
	Upsert(ctx context.Context, row *EntityRow) error

	// SoftDelete marks the entity's row deleted and stamps it with version.
	SoftDelete(ctx context.Context, userID, entityID string, version int64) error

	// SelectUpdated returns rows for userID with version > minVersion,
	// ascending by version, at most limit rows (limit <= 0 means no limit).
	SelectUpdated(ctx context.Context, userID string, minVersion int64, limit int) ([]*EntityRow, error)

	// MaxVersion returns the highest stored version for userID, 0 when none.
	MaxVersion(ctx context.Context, userID string) (int64, error)

	// CountUpdated counts rows for userID with version > minVersion.
	CountUpdated(ctx context.Context, userID string, minVersion int64) (int, error)
}

// MetadataRepository stores per-(user, device) sync metadata.
type MetadataRepository interface {
	// Get returns the metadata row, or common.ErrorNotFound.
	Get(ctx context.Context, userID, deviceID string) (*Metadata, error)

	// Upsert writes m keyed by (UserID, DeviceID).
	Upsert(ctx context.Context, m *Metadata) error
}

// FeedEventType labels a real-time feed event.
type FeedEventType string

const (
	FeedInsert FeedEventType = "INSERT"
	FeedUpdate FeedEventType = "UPDATE"
	FeedDelete FeedEventType = "DELETE"
)

// FeedEvent is one change emitted by the real-time feed. For insert/update
// events Row is the new row state; for delete events it is the last-known
// (old) row state.
type FeedEvent struct {
	Type FeedEventType
	Row  *EntityRow
}

// Feed is the real-time change feed collaborator, scoped per user. Duplicate
// delivery is possible; subscribers must tolerate it.
type Feed interface {
	Subscribe(ctx context.Context, userID string, fn func(FeedEvent)) (func(), error)
}
