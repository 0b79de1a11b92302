package sqlite

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/server/storage"
)

func TestCheckpoint_GetNotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	tx := beginTestTx(t, ctx, s)
	defer tx.Rollback() //nolint:errcheck

	_, err := tx.GetCheckpoint(ctx, uuid.New().String(), "device-1")
	assert.ErrorIs(t, err, storage.ErrCheckpointNotFound)
}

func TestCheckpoint_UpsertCreatesAndUpdates(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	tx := beginTestTx(t, ctx, s)
	defer tx.Rollback() //nolint:errcheck

	userID := uuid.New().String()

	// Первый sync устройства создает checkpoint
	cp := &models.Checkpoint{
		UserID:     userID,
		DeviceID:   "device-abc",
		LastSync:   1000,
		InProgress: false,
		CreatedAt:  1000,
		UpdatedAt:  1000,
	}
	require.NoError(t, tx.UpsertCheckpoint(ctx, cp))

	got, err := tx.GetCheckpoint(ctx, userID, "device-abc")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.LastSync)
	assert.False(t, got.InProgress)

	// Повторный upsert обновляет last_sync, created_at не трогает
	cp.LastSync = 2000
	cp.UpdatedAt = 2000
	require.NoError(t, tx.UpsertCheckpoint(ctx, cp))

	got, err = tx.GetCheckpoint(ctx, userID, "device-abc")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.LastSync)
	assert.Equal(t, int64(1000), got.CreatedAt)
	assert.Equal(t, int64(2000), got.UpdatedAt)
}

func TestCheckpoint_PerDeviceIsolation(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	tx := beginTestTx(t, ctx, s)
	defer tx.Rollback() //nolint:errcheck

	userID := uuid.New().String()

	for i, device := range []string{"device-1", "device-2"} {
		cp := &models.Checkpoint{
			UserID:    userID,
			DeviceID:  device,
			LastSync:  int64(1000 * (i + 1)),
			CreatedAt: 1000,
			UpdatedAt: 1000,
		}
		require.NoError(t, tx.UpsertCheckpoint(ctx, cp))
	}

	got1, err := tx.GetCheckpoint(ctx, userID, "device-1")
	require.NoError(t, err)
	got2, err := tx.GetCheckpoint(ctx, userID, "device-2")
	require.NoError(t, err)

	assert.Equal(t, int64(1000), got1.LastSync)
	assert.Equal(t, int64(2000), got2.LastSync)
}
