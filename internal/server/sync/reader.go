package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/server/storage"
	"github.com/ledgerkeeper/ledgerkeeper/internal/tables"
	"github.com/ledgerkeeper/ledgerkeeper/pkg/api"
)

// collectChanges вычисляет серверные дельты для окна (since, until]
// по всем таблицам allowlist, в их фиксированном порядке. Записи,
// ни разу не доставлявшиеся через sync (synced_at не проставлен),
// попадают в выдачу независимо от окна.
func (s *Service) collectChanges(ctx context.Context, tx storage.Tx, userID string, since, until int64) ([]api.Change, error) {
	changes := []api.Change{}

	for _, table := range tables.All() {
		records, err := tx.ListChangedRecords(ctx, table, userID, since, until)
		if err != nil {
			return nil, fmt.Errorf("failed to list changes for %s: %w", table, err)
		}

		for _, rec := range records {
			changes = append(changes, api.Change{
				// Синтетический id: идентифицирует дельту, а не
				// клиентскую операцию. ClientTimestamp == 0 —
				// признак серверного происхождения.
				ID:              "srv-" + uuid.New().String(),
				Table:           table,
				Op:              deriveChangeKind(rec),
				Data:            renderRecordData(rec),
				ClientTimestamp: 0,
			})
		}
	}

	return changes, nil
}

// deriveChangeKind выводит вид изменения из состояния записи:
// неактивная — delete; не доставлявшаяся через sync, либо созданная
// не раньше последней доставки — create; иначе — update.
func deriveChangeKind(rec *models.Record) string {
	if !rec.Active {
		return api.OpDelete
	}
	if rec.SyncedAt == nil || rec.CreatedAt >= *rec.SyncedAt {
		return api.OpCreate
	}
	return api.OpUpdate
}

// renderRecordData собирает публичное представление записи: JSON-поля
// декодируются в структуру (при порче — fallback на пустой объект,
// ошибка декодирования наружу не выходит), моменты времени рендерятся
// в каноническом текстовом виде RFC3339 UTC.
func renderRecordData(rec *models.Record) json.RawMessage {
	fields := decodeFields(rec.Data)

	fields["id"] = rec.ID
	fields["user_id"] = rec.UserID
	fields["created_at"] = formatInstant(rec.CreatedAt)
	fields["updated_at"] = formatInstant(rec.UpdatedAt)
	fields["deleted"] = !rec.Active

	out, err := json.Marshal(fields)
	if err != nil {
		return json.RawMessage("{}")
	}
	return out
}

// formatInstant рендерит epoch ms в канонический RFC3339 UTC
func formatInstant(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
