package syncx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
)

// PostgresEntityRepository implements EntityRepository over a dbx.DBTX
// (*sql.DB or *sql.Tx) against the sync_entities table.
type PostgresEntityRepository struct {
	db dbx.DBTX
}

// NewPostgresEntityRepository constructs a repository bound to the given DBTX.
func NewPostgresEntityRepository(db dbx.DBTX) *PostgresEntityRepository {
	return &PostgresEntityRepository{db: db}
}

// Upsert writes the row keyed by entity id. The overwrite is unconditional;
// a concurrent push with a stale version silently wins if it lands last.
func (r *PostgresEntityRepository) Upsert(ctx context.Context, row *EntityRow) error {
	query := `
		INSERT INTO sync_entities (entity_id, user_id, entity_type, ciphertext, nonce, auth_tag, version, is_deleted, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, now())
		ON CONFLICT (entity_id)
		DO UPDATE SET
			user_id = EXCLUDED.user_id,
			entity_type = EXCLUDED.entity_type,
			ciphertext = EXCLUDED.ciphertext,
			nonce = EXCLUDED.nonce,
			auth_tag = EXCLUDED.auth_tag,
			version = EXCLUDED.version,
			is_deleted = FALSE,
			updated_at = now();
	`
	_, err := r.db.ExecContext(ctx, query,
		row.EntityID, row.UserID, row.EntityType, row.Ciphertext, row.Nonce, row.AuthTag, row.Version)
	if err != nil {
		return fmt.Errorf("failed to upsert entity: %w", err)
	}
	return nil
}

// SoftDelete marks the row deleted and stamps the operation's version. A
// tombstone row is created when the entity was never pushed from this device.
func (r *PostgresEntityRepository) SoftDelete(ctx context.Context, userID, entityID string, version int64) error {
	query := `
		INSERT INTO sync_entities (entity_id, user_id, entity_type, ciphertext, nonce, auth_tag, version, is_deleted, updated_at)
		VALUES ($1, $2, '', ''::bytea, ''::bytea, ''::bytea, $3, TRUE, now())
		ON CONFLICT (entity_id)
		DO UPDATE SET
			is_deleted = TRUE,
			version = EXCLUDED.version,
			updated_at = now();
	`
	if _, err := r.db.ExecContext(ctx, query, entityID, userID, version); err != nil {
		return fmt.Errorf("failed to soft-delete entity: %w", err)
	}
	return nil
}

// SelectUpdated returns rows with version > minVersion, ascending, capped at
// limit.
func (r *PostgresEntityRepository) SelectUpdated(ctx context.Context, userID string, minVersion int64, limit int) ([]*EntityRow, error) {
	query := `
		SELECT entity_id, user_id, entity_type, ciphertext, nonce, auth_tag, version, is_deleted, updated_at
		FROM sync_entities
		WHERE user_id = $1 AND version > $2
		ORDER BY version ASC
	`
	args := []any{userID, minVersion}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select entities: %w", err)
	}
	defer rows.Close()

	var result []*EntityRow
	for rows.Next() {
		var item EntityRow
		if err := rows.Scan(
			&item.EntityID, &item.UserID, &item.EntityType,
			&item.Ciphertext, &item.Nonce, &item.AuthTag,
			&item.Version, &item.Deleted, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MaxVersion returns the highest stored version for the user, 0 when the user
// has no rows.
func (r *PostgresEntityRepository) MaxVersion(ctx context.Context, userID string) (int64, error) {
	var v int64
	query := `SELECT COALESCE(MAX(version), 0) FROM sync_entities WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to select max version: %w", err)
	}
	return v, nil
}

// CountUpdated counts rows past the cursor.
func (r *PostgresEntityRepository) CountUpdated(ctx context.Context, userID string, minVersion int64) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM sync_entities WHERE user_id = $1 AND version > $2`
	if err := r.db.QueryRowContext(ctx, query, userID, minVersion).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return n, nil
}

// PostgresMetadataRepository implements MetadataRepository against the
// sync_metadata table.
type PostgresMetadataRepository struct {
	db dbx.DBTX
}

func NewPostgresMetadataRepository(db dbx.DBTX) *PostgresMetadataRepository {
	return &PostgresMetadataRepository{db: db}
}

func (r *PostgresMetadataRepository) Get(ctx context.Context, userID, deviceID string) (*Metadata, error) {
	query := `
		SELECT user_id, device_id, last_sync_version, sync_status, last_synced_at
		FROM sync_metadata
		WHERE user_id = $1 AND device_id = $2
	`
	m := &Metadata{}
	err := r.db.QueryRowContext(ctx, query, userID, deviceID).
		Scan(&m.UserID, &m.DeviceID, &m.LastSyncVersion, &m.SyncStatus, &m.LastSyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select sync metadata: %w", err)
	}
	return m, nil
}

func (r *PostgresMetadataRepository) Upsert(ctx context.Context, m *Metadata) error {
	query := `
		INSERT INTO sync_metadata (user_id, device_id, last_sync_version, sync_status, last_synced_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, device_id)
		DO UPDATE SET
			last_sync_version = EXCLUDED.last_sync_version,
			sync_status = EXCLUDED.sync_status,
			last_synced_at = EXCLUDED.last_synced_at;
	`
	_, err := r.db.ExecContext(ctx, query,
		m.UserID, m.DeviceID, m.LastSyncVersion, m.SyncStatus, m.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert sync metadata: %w", err)
	}
	return nil
}
