package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/server/storage"
	"github.com/ledgerkeeper/ledgerkeeper/internal/tables"
)

// querySet содержит подготовленный набор параметризованных запросов
// для одной таблицы. Имя таблицы подставляется один раз, на старте,
// и только из allowlist — динамической интерполяции в рантайме нет.
type querySet struct {
	selectByID   string
	insert       string
	update       string
	softDelete   string
	changedSince string
}

var queries = func() map[string]querySet {
	m := make(map[string]querySet, len(tables.All()))
	for _, t := range tables.All() {
		m[t] = querySet{
			selectByID: fmt.Sprintf(`
				SELECT id, user_id, data, created_at, updated_at, synced_at, active
				FROM %s
				WHERE user_id = ? AND id = ?
			`, t),
			insert: fmt.Sprintf(`
				INSERT INTO %s (id, user_id, data, created_at, updated_at, synced_at, active)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, t),
			update: fmt.Sprintf(`
				UPDATE %s
				SET data = ?, updated_at = ?, synced_at = ?, active = ?
				WHERE user_id = ? AND id = ?
			`, t),
			softDelete: fmt.Sprintf(`
				UPDATE %s
				SET active = 0, updated_at = ?, synced_at = ?
				WHERE user_id = ? AND id = ?
			`, t),
			changedSince: fmt.Sprintf(`
				SELECT id, user_id, data, created_at, updated_at, synced_at, active
				FROM %s
				WHERE user_id = ? AND ((updated_at > ? AND updated_at <= ?) OR synced_at IS NULL)
				ORDER BY updated_at ASC
			`, t),
		}
	}
	return m
}()

// GetRecord retrieves a single record by table, owner and id.
// Logically deleted records are returned with Active == false.
// Returns ErrRecordNotFound if the record does not exist.
func (t *Tx) GetRecord(ctx context.Context, table, userID, id string) (*models.Record, error) {
	qs, ok := queries[table]
	if !ok {
		return nil, storage.ErrUnknownTable
	}

	rec := &models.Record{}
	var syncedAt sql.NullInt64
	var active int

	err := t.tx.QueryRowContext(ctx, qs.selectByID, userID, id).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Data,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&syncedAt,
		&active,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	if syncedAt.Valid {
		rec.SyncedAt = &syncedAt.Int64
	}
	rec.Active = intToBool(active)

	return rec, nil
}

// InsertRecord creates a new record.
// Returns ErrRecordExists if a record with this id already exists.
func (t *Tx) InsertRecord(ctx context.Context, table string, rec *models.Record) error {
	qs, ok := queries[table]
	if !ok {
		return storage.ErrUnknownTable
	}

	_, err := t.tx.ExecContext(ctx, qs.insert,
		rec.ID,
		rec.UserID,
		string(rec.Data),
		rec.CreatedAt,
		rec.UpdatedAt,
		nullableInt64(rec.SyncedAt),
		boolToInt(rec.Active),
	)

	if err != nil {
		// Проверяем на duplicate id
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return storage.ErrRecordExists
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// UpdateRecord overwrites payload and timestamps of an existing record.
// ID and UserID are never changed. Returns ErrRecordNotFound if missing.
func (t *Tx) UpdateRecord(ctx context.Context, table string, rec *models.Record) error {
	qs, ok := queries[table]
	if !ok {
		return storage.ErrUnknownTable
	}

	result, err := t.tx.ExecContext(ctx, qs.update,
		string(rec.Data),
		rec.UpdatedAt,
		nullableInt64(rec.SyncedAt),
		boolToInt(rec.Active),
		rec.UserID,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrRecordNotFound
	}

	return nil
}

// SoftDeleteRecord marks the record inactive, stamping updated_at and
// synced_at with ts. Returns ErrRecordNotFound if the record does not exist.
func (t *Tx) SoftDeleteRecord(ctx context.Context, table, userID, id string, ts int64) error {
	qs, ok := queries[table]
	if !ok {
		return storage.ErrUnknownTable
	}

	result, err := t.tx.ExecContext(ctx, qs.softDelete, ts, ts, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrRecordNotFound
	}

	return nil
}

// ListChangedRecords retrieves records of the user whose updated_at falls
// in (since, until], plus records never delivered through sync.
func (t *Tx) ListChangedRecords(ctx context.Context, table, userID string, since, until int64) ([]*models.Record, error) {
	qs, ok := queries[table]
	if !ok {
		return nil, storage.ErrUnknownTable
	}

	rows, err := t.tx.QueryContext(ctx, qs.changedSince, userID, since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query changed records: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return scanRecords(rows)
}

// scanRecords is a helper function to scan multiple records from rows
func scanRecords(rows *sql.Rows) ([]*models.Record, error) {
	var records []*models.Record

	for rows.Next() {
		rec := &models.Record{}
		var syncedAt sql.NullInt64
		var active int

		err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Data,
			&rec.CreatedAt,
			&rec.UpdatedAt,
			&syncedAt,
			&active,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		if syncedAt.Valid {
			rec.SyncedAt = &syncedAt.Int64
		}
		rec.Active = intToBool(active)

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// Helper functions for bool/int conversion
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
