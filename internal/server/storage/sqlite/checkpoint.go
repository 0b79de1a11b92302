package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/server/storage"
)

// GetCheckpoint retrieves the checkpoint for (user, device).
// Returns ErrCheckpointNotFound on first sync of a device.
func (t *Tx) GetCheckpoint(ctx context.Context, userID, deviceID string) (*models.Checkpoint, error) {
	query := `
		SELECT user_id, device_id, last_sync, sync_in_progress, created_at, updated_at
		FROM sync_checkpoints
		WHERE user_id = ? AND device_id = ?
	`

	cp := &models.Checkpoint{}
	var inProgress int

	err := t.tx.QueryRowContext(ctx, query, userID, deviceID).Scan(
		&cp.UserID,
		&cp.DeviceID,
		&cp.LastSync,
		&inProgress,
		&cp.CreatedAt,
		&cp.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	cp.InProgress = intToBool(inProgress)

	return cp, nil
}

// UpsertCheckpoint creates or updates the checkpoint for (user, device)
func (t *Tx) UpsertCheckpoint(ctx context.Context, cp *models.Checkpoint) error {
	query := `
		INSERT INTO sync_checkpoints (user_id, device_id, last_sync, sync_in_progress, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			last_sync = excluded.last_sync,
			sync_in_progress = excluded.sync_in_progress,
			updated_at = excluded.updated_at
	`

	_, err := t.tx.ExecContext(ctx, query,
		cp.UserID,
		cp.DeviceID,
		cp.LastSync,
		boolToInt(cp.InProgress),
		cp.CreatedAt,
		cp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert checkpoint: %w", err)
	}

	return nil
}
