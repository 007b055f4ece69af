package syncx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/notify"
	"github.com/google/uuid"
)

// Coordinator drives push/pull/subscribe against the remote store for one
// device. It owns the device's sync metadata; the remote store remains the
// system of record for operations.
type Coordinator struct {
	entities EntityRepository
	metadata MetadataRepository
	feed     Feed
	notifier *notify.Notifier
	log      logging.Logger
	deviceID string

	now func() time.Time
}

func NewCoordinator(entities EntityRepository, metadata MetadataRepository, feed Feed, notifier *notify.Notifier, log logging.Logger, deviceID string) *Coordinator {
	return &Coordinator{
		entities: entities,
		metadata: metadata,
		feed:     feed,
		notifier: notifier,
		log:      log,
		deviceID: deviceID,
		now:      time.Now,
	}
}

// GetSyncMetadata returns this device's metadata for userID, or
// common.ErrorNotFound before the first sync attempt.
func (c *Coordinator) GetSyncMetadata(ctx context.Context, userID string) (*Metadata, error) {
	return c.metadata.Get(ctx, userID, c.deviceID)
}

// UpsertSyncMetadata records status for (userID, device), always refreshing
// LastSyncedAt. A nil lastSyncVersion keeps the stored cursor.
func (c *Coordinator) UpsertSyncMetadata(ctx context.Context, userID string, status Status, lastSyncVersion *int64) error {
	m := &Metadata{
		UserID:       userID,
		DeviceID:     c.deviceID,
		SyncStatus:   status,
		LastSyncedAt: c.now(),
	}
	if lastSyncVersion != nil {
		m.LastSyncVersion = *lastSyncVersion
	} else if existing, err := c.metadata.Get(ctx, userID, c.deviceID); err == nil {
		m.LastSyncVersion = existing.LastSyncVersion
	}
	return c.metadata.Upsert(ctx, m)
}

// setStatus is best-effort: the status machine is informational and its
// bookkeeping must never fail a sync call.
func (c *Coordinator) setStatus(ctx context.Context, userID string, status Status, lastSyncVersion *int64) {
	if err := c.UpsertSyncMetadata(ctx, userID, status, lastSyncVersion); err != nil {
		c.log.Warn(ctx, "failed to update sync metadata", "user", userID, "status", status, "err", err)
	}
}

// PushOperations applies operations to the remote store independently, in
// input order, with no rollback on partial failure. Delete operations mark
// the remote row soft-deleted with the operation's version; create/update
// operations upsert the encrypted payload unconditionally: no comparison
// against the existing remote version is made, the last push wins. A
// malformed payload fails its own operation and the batch continues.
func (c *Coordinator) PushOperations(ctx context.Context, ops []*Operation) []PushResult {
	if len(ops) == 0 {
		return []PushResult{}
	}

	userID := ops[0].UserID
	c.setStatus(ctx, userID, StatusSyncing, nil)

	results := make([]PushResult, 0, len(ops))
	var maxPushed int64
	succeeded := 0

	for _, op := range ops {
		if err := c.pushOne(ctx, op); err != nil {
			c.log.Warn(ctx, "push operation failed", "op", op.ID, "entity", op.EntityID, "err", err)
			results = append(results, PushResult{OperationID: op.ID, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, PushResult{OperationID: op.ID, Success: true})
		succeeded++
		if op.Version > maxPushed {
			maxPushed = op.Version
		}
	}

	if succeeded == 0 {
		c.setStatus(ctx, userID, StatusError, nil)
	} else {
		c.setStatus(ctx, userID, StatusIdle, &maxPushed)
	}
	return results
}

func (c *Coordinator) pushOne(ctx context.Context, op *Operation) error {
	switch op.Type {
	case OpDelete:
		return c.entities.SoftDelete(ctx, op.UserID, op.EntityID, op.Version)
	case OpCreate, OpUpdate:
		var payload cryptox.EncryptedPayload
		if err := json.Unmarshal([]byte(op.EncryptedPayload), &payload); err != nil {
			return fmt.Errorf("%w: %v", common.ErrorMalformedPayload, err)
		}
		row := &EntityRow{
			EntityID:   op.EntityID,
			UserID:     op.UserID,
			EntityType: op.EntityType,
			Ciphertext: payload.Ciphertext,
			Nonce:      payload.Nonce,
			AuthTag:    payload.AuthTag,
			Version:    op.Version,
		}
		return c.entities.Upsert(ctx, row)
	default:
		return fmt.Errorf("unknown operation type: %s", op.Type)
	}
}

// PullChanges fetches remote rows with version > sinceVersion, ascending,
// capped at limit, mapped to operations. A soft-deleted row maps to a delete
// operation with no payload; any other row to an update operation carrying
// the stored encrypted fields.
func (c *Coordinator) PullChanges(ctx context.Context, userID string, sinceVersion int64, limit int) ([]*Operation, error) {
	c.setStatus(ctx, userID, StatusSyncing, nil)

	rows, err := c.entities.SelectUpdated(ctx, userID, sinceVersion, limit)
	if err != nil {
		c.setStatus(ctx, userID, StatusError, nil)
		return nil, fmt.Errorf("failed to pull changes: %w", err)
	}

	ops := make([]*Operation, 0, len(rows))
	cursor := sinceVersion
	for _, row := range rows {
		op, err := rowToOperation(row)
		if err != nil {
			c.log.Warn(ctx, "skipping unreadable row", "entity", row.EntityID, "err", err)
			continue
		}
		ops = append(ops, op)
		if row.Version > cursor {
			cursor = row.Version
		}
	}

	c.setStatus(ctx, userID, StatusIdle, &cursor)
	return ops, nil
}

// GetLatestVersion returns the highest version stored remotely for the user,
// or 0 when none.
func (c *Coordinator) GetLatestVersion(ctx context.Context, userID string) (int64, error) {
	return c.entities.MaxVersion(ctx, userID)
}

// GetPendingCount counts remote rows past the cursor.
func (c *Coordinator) GetPendingCount(ctx context.Context, userID string, sinceVersion int64) (int, error) {
	return c.entities.CountUpdated(ctx, userID, sinceVersion)
}

// SubscribeToChanges attaches to the real-time feed scoped to userID. Each
// insert/update event is mapped like PullChanges; a delete event synthesizes
// a delete operation from the last-known row state. Events are forwarded both
// to onChange and to the shared notifier. No ordering guarantee is made
// beyond what the feed emits, and duplicates are possible.
func (c *Coordinator) SubscribeToChanges(ctx context.Context, userID string, onChange func(*Operation)) (func(), error) {
	return c.feed.Subscribe(ctx, userID, func(e FeedEvent) {
		var op *Operation
		if e.Type == FeedDelete {
			op = deleteOperation(e.Row)
		} else {
			var err error
			op, err = rowToOperation(e.Row)
			if err != nil {
				c.log.Warn(ctx, "skipping unreadable feed event", "entity", e.Row.EntityID, "err", err)
				return
			}
		}

		c.notifier.Publish(notify.Event{
			Kind:       notify.EventRemoteOperation,
			ResourceID: op.EntityID,
			Payload:    op,
		})
		onChange(op)
	})
}

// DecryptPayloads decrypts the payloads of update operations with key.
// Rows that fail to decrypt are logged and excluded rather than failing the
// whole batch. The result maps entity id to plaintext.
func (c *Coordinator) DecryptPayloads(ctx context.Context, ops []*Operation, key []byte) map[string][]byte {
	out := make(map[string][]byte)
	for _, op := range ops {
		if op.EncryptedPayload == "" {
			continue
		}
		var payload cryptox.EncryptedPayload
		if err := json.Unmarshal([]byte(op.EncryptedPayload), &payload); err != nil {
			c.log.Warn(ctx, "excluding row with malformed payload", "entity", op.EntityID, "err", err)
			continue
		}
		plaintext, err := cryptox.Decrypt(&payload, key)
		if err != nil {
			c.log.Warn(ctx, "excluding row that failed to decrypt", "entity", op.EntityID, "err", err)
			continue
		}
		out[op.EntityID] = plaintext
	}
	return out
}

func rowToOperation(row *EntityRow) (*Operation, error) {
	if row.Deleted {
		return deleteOperation(row), nil
	}

	raw, err := json.Marshal(cryptox.EncryptedPayload{
		Ciphertext: row.Ciphertext,
		Nonce:      row.Nonce,
		AuthTag:    row.AuthTag,
	})
	if err != nil {
		return nil, err
	}

	return &Operation{
		ID:               uuid.NewString(),
		UserID:           row.UserID,
		Type:             OpUpdate,
		EntityType:       row.EntityType,
		EntityID:         row.EntityID,
		EncryptedPayload: string(raw),
		Timestamp:        row.UpdatedAt,
		Version:          row.Version,
	}, nil
}

func deleteOperation(row *EntityRow) *Operation {
	return &Operation{
		ID:         uuid.NewString(),
		UserID:     row.UserID,
		Type:       OpDelete,
		EntityType: row.EntityType,
		EntityID:   row.EntityID,
		Timestamp:  row.UpdatedAt,
		Version:    row.Version,
	}
}
