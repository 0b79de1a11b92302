package storage

import (
	"context"

	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
)

// RecordStorage defines interface for synced record persistence.
// All methods operate within the transaction they were obtained from
// (see Storage.Begin). The table argument must be in the sync allowlist;
// implementations return ErrUnknownTable otherwise.
type RecordStorage interface {
	// GetRecord retrieves a single record by table, owner and id.
	// Logically deleted records are returned with Active == false.
	// Returns ErrRecordNotFound if the record does not exist.
	GetRecord(ctx context.Context, table, userID, id string) (*models.Record, error)

	// InsertRecord creates a new record.
	// Returns ErrRecordExists if a record with this id already exists.
	InsertRecord(ctx context.Context, table string, rec *models.Record) error

	// UpdateRecord overwrites payload and timestamps of an existing record.
	// ID and UserID are never changed. Returns ErrRecordNotFound if missing.
	UpdateRecord(ctx context.Context, table string, rec *models.Record) error

	// SoftDeleteRecord marks the record inactive, stamping updated_at and
	// synced_at with ts. Data is retained for delta delivery to other
	// devices. Returns ErrRecordNotFound if the record does not exist.
	SoftDeleteRecord(ctx context.Context, table, userID, id string, ts int64) error

	// ListChangedRecords retrieves records of the user whose updated_at
	// falls in (since, until], plus records never delivered through sync
	// (synced_at unset), ordered by updated_at ascending.
	ListChangedRecords(ctx context.Context, table, userID string, since, until int64) ([]*models.Record, error)
}

// CheckpointStorage defines interface for per-device sync checkpoints
type CheckpointStorage interface {
	// GetCheckpoint retrieves the checkpoint for (user, device).
	// Returns ErrCheckpointNotFound on first sync of a device.
	GetCheckpoint(ctx context.Context, userID, deviceID string) (*models.Checkpoint, error)

	// UpsertCheckpoint creates or updates the checkpoint for (user, device)
	UpsertCheckpoint(ctx context.Context, cp *models.Checkpoint) error
}

// Tx is a transaction scoped to one sync round. Either Commit or
// Rollback must be called; Rollback after Commit is a no-op.
type Tx interface {
	RecordStorage
	CheckpointStorage

	Commit() error
	Rollback() error
}

// Storage is the entry point the sync coordinator depends on.
// One transaction is opened per sync round.
type Storage interface {
	Begin(ctx context.Context) (Tx, error)
}
