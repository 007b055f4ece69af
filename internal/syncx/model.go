// Package syncx implements the multi-device synchronization engine: pushing
// local mutations to a remote encrypted row store, pulling remote mutations
// past a version cursor, and forwarding real-time change events. Conflict
// resolution is last-writer-wins: the version integer is used only for cursor
// pagination, never for write rejection.
package syncx

import "time"

// OperationType classifies a sync operation.
type OperationType string

const (
	OpCreate OperationType = "create"
	OpUpdate OperationType = "update"
	OpDelete OperationType = "delete"
)

// Status is the informational sync state of a device. The engine records
// transitions but does not enforce them as a hard invariant. StatusConflict
// is reserved and never set here: no conflict detection is implemented.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusSyncing  Status = "syncing"
	StatusConflict Status = "conflict"
	StatusError    Status = "error"
)

// Operation is a unit of synchronization. EncryptedPayload is the JSON
// rendering of the encrypted triple (ciphertext/nonce/auth tag) produced by
// the encryption collaborator; it is empty for delete operations. Version is
// supplied by the writer and must increase monotonically per entity; the
// engine does not assign or validate it.
type Operation struct {
	ID               string        `json:"id"`
	UserID           string        `json:"userId"`
	SessionID        string        `json:"sessionId"`
	Type             OperationType `json:"operationType"`
	EntityType       string        `json:"entityType"`
	EntityID         string        `json:"entityId"`
	EncryptedPayload string        `json:"encryptedPayload,omitempty"`
	Timestamp        time.Time     `json:"timestamp"`
	Version          int64         `json:"version"`
}

// Metadata tracks sync progress per (user, device) pair. It is created on the
// first sync attempt and updated via upsert; this engine never deletes it.
type Metadata struct {
	UserID          string    `json:"userId"`
	DeviceID        string    `json:"deviceId"`
	LastSyncVersion int64     `json:"lastSyncVersion"`
	SyncStatus      Status    `json:"syncStatus"`
	LastSyncedAt    time.Time `json:"lastSyncedAt"`
}

// PushResult reports the outcome of one pushed operation. Operations are
// processed independently; a failed one never aborts the rest of the batch.
type PushResult struct {
	OperationID string `json:"operationId"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// EntityRow is the remote store row for one entity: opaque encrypted columns,
// a writer-supplied version, and a soft-delete flag.
type EntityRow struct {
	EntityID   string    `json:"entity_id"`
	UserID     string    `json:"user_id"`
	EntityType string    `json:"entity_type"`
	Ciphertext []byte    `json:"ciphertext"`
	Nonce      []byte    `json:"nonce"`
	AuthTag    []byte    `json:"auth_tag"`
	Version    int64     `json:"version"`
	Deleted    bool      `json:"is_deleted"`
	UpdatedAt  time.Time `json:"updated_at"`
}
