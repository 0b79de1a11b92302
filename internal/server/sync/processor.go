package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/server/storage"
	"github.com/ledgerkeeper/ledgerkeeper/internal/tables"
	"github.com/ledgerkeeper/ledgerkeeper/pkg/api"
)

// applyOperation применяет одну клиентскую операцию к состоянию сервера
// внутри транзакции раунда. Возвращает (nil, nil) при чистом применении,
// конфликт — когда у обеих сторон легитимные расходящиеся версии, и
// ошибку — когда операция сама по себе невалидна (неизвестная таблица,
// чужие данные, запись не найдена). Ошибка останавливает только эту
// операцию, остальной батч продолжается.
func (s *Service) applyOperation(ctx context.Context, tx storage.Tx, userID string, op api.Operation, serverTS int64) (*api.Conflict, error) {
	if !tables.Synchronizable(op.Table) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotAllowed, op.Table)
	}

	payload, err := decodePayload(op.Data)
	if err != nil {
		return nil, err
	}

	// Проверка владения до диспетчеризации по виду операции:
	// если payload несёт чужой owner id — операция отклоняется сразу.
	ownerField := tables.OwnerField(op.Table)
	if owner, ok := payload[ownerField].(string); ok && owner != userID {
		return nil, ErrOwnershipViolation
	}

	recordID, _ := payload["id"].(string)
	if recordID == "" {
		return nil, ErrMissingRecordID
	}

	// id и owner живут в колонках, из payload они всегда вычищаются:
	// клиент не может переписать их через update.
	delete(payload, "id")
	delete(payload, ownerField)

	switch op.Op {
	case api.OpCreate:
		return s.applyCreate(ctx, tx, userID, op, recordID, payload, serverTS)
	case api.OpUpdate:
		return s.applyUpdate(ctx, tx, userID, op, recordID, payload, serverTS)
	case api.OpDelete:
		return s.applyDelete(ctx, tx, userID, op, recordID, serverTS)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op.Op)
	}
}

// applyCreate вставляет новую запись. Существующая запись с тем же id
// у того же пользователя — это create_conflict, а не ошибка.
func (s *Service) applyCreate(ctx context.Context, tx storage.Tx, userID string, op api.Operation, recordID string, payload map[string]any, serverTS int64) (*api.Conflict, error) {
	existing, err := tx.GetRecord(ctx, op.Table, userID, recordID)
	if err != nil && !errors.Is(err, storage.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing record: %w", err)
	}

	if existing != nil {
		return &api.Conflict{
			OperationID:     op.ID,
			Table:           op.Table,
			RecordID:        recordID,
			ClientData:      op.Data,
			ServerData:      renderRecordData(existing),
			ConflictType:    api.ConflictCreate,
			ClientTimestamp: op.ClientTimestamp,
			ServerTimestamp: existing.UpdatedAt,
		}, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	rec := &models.Record{
		Data:      data,
		ID:        recordID,
		UserID:    userID,
		SyncedAt:  &serverTS,
		CreatedAt: serverTS,
		UpdatedAt: serverTS,
		Active:    true,
	}

	if err := tx.InsertRecord(ctx, op.Table, rec); err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	return nil, nil
}

// applyUpdate применяет field-level update поверх текущих полей записи.
// Отсутствующая запись — ошибка (не конфликт): клиенту нечего выбирать,
// его предпосылка просто неверна.
func (s *Service) applyUpdate(ctx context.Context, tx storage.Tx, userID string, op api.Operation, recordID string, payload map[string]any, serverTS int64) (*api.Conflict, error) {
	rec, err := tx.GetRecord(ctx, op.Table, userID, recordID)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	// На сервере версия, которую клиент не видел — update_conflict
	if rec.ModifiedAfter(op.ClientTimestamp) {
		return &api.Conflict{
			OperationID:     op.ID,
			Table:           op.Table,
			RecordID:        recordID,
			ClientData:      op.Data,
			ServerData:      renderRecordData(rec),
			ConflictType:    api.ConflictUpdate,
			ClientTimestamp: op.ClientTimestamp,
			ServerTimestamp: rec.UpdatedAt,
		}, nil
	}

	fields := decodeFields(rec.Data)
	for k, v := range payload {
		fields[k] = v
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	rec.Data = data
	rec.UpdatedAt = serverTS
	rec.SyncedAt = &serverTS

	if err := tx.UpdateRecord(ctx, op.Table, rec); err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	return nil, nil
}

// applyDelete выполняет логическое удаление. Удаление отсутствующей или
// уже удалённой записи — no-op: delete идемпотентен по построению.
func (s *Service) applyDelete(ctx context.Context, tx storage.Tx, userID string, op api.Operation, recordID string, serverTS int64) (*api.Conflict, error) {
	rec, err := tx.GetRecord(ctx, op.Table, userID, recordID)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	if !rec.Active {
		return nil, nil
	}

	if rec.ModifiedAfter(op.ClientTimestamp) {
		return &api.Conflict{
			OperationID:     op.ID,
			Table:           op.Table,
			RecordID:        recordID,
			ClientData:      op.Data,
			ServerData:      renderRecordData(rec),
			ConflictType:    api.ConflictDelete,
			ClientTimestamp: op.ClientTimestamp,
			ServerTimestamp: rec.UpdatedAt,
		}, nil
	}

	if err := tx.SoftDeleteRecord(ctx, op.Table, userID, recordID, serverTS); err != nil {
		return nil, fmt.Errorf("failed to delete record: %w", err)
	}

	return nil, nil
}

// decodePayload разбирает payload операции. Невалидный JSON в клиентской
// операции — ошибка валидации этой операции.
func decodePayload(data json.RawMessage) (map[string]any, error) {
	payload := map[string]any{}
	if len(data) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, ErrInvalidPayload
	}
	return payload, nil
}

// decodeFields разбирает сохранённые поля записи. Испорченные данные на
// сервере не валят раунд: fallback на пустой объект.
func decodeFields(data json.RawMessage) map[string]any {
	fields := map[string]any{}
	if len(data) == 0 {
		return fields
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return map[string]any{}
	}
	return fields
}
