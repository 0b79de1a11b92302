// Package sync реализует серверный движок офлайн-синхронизации:
// применение клиентских операций, классификацию конфликтов, вычисление
// серверных дельт и продвижение checkpoint устройства. Один вызов
// ProcessSync — один раунд — одна транзакция.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/server/storage"
	"github.com/ledgerkeeper/ledgerkeeper/pkg/api"
)

// Service координирует раунды синхронизации. Обычная структура с
// явными зависимостями, создается один раз при старте сервера.
type Service struct {
	logger  *slog.Logger
	storage storage.Storage
}

// NewService creates a new sync service
func NewService(logger *slog.Logger, st storage.Storage) *Service {
	return &Service{
		logger:  logger,
		storage: st,
	}
}

// ProcessSync выполняет один раунд синхронизации для пользователя.
//
// Алгоритм:
//  1. server_timestamp фиксируется до любой работы с операциями;
//  2. открывается одна транзакция на весь раунд;
//  3. операции применяются строго в порядке запроса — поздние могут
//     зависеть от эффектов ранних; ошибка операции не прерывает батч;
//  4. вычисляются серверные дельты окна (last_sync, server_timestamp];
//  5. checkpoint (user, device) продвигается на server_timestamp;
//  6. commit.
//
// Ошибка вне per-operation обработки откатывает весь раунд: клиент
// не увидит частичного применения.
func (s *Service) ProcessSync(ctx context.Context, userID string, req *api.SyncRequest) (*api.SyncResponse, error) {
	serverTS := time.Now().UnixMilli()

	tx, err := s.storage.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin sync round: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op после успешного commit

	resp := &api.SyncResponse{
		Conflicts:           []api.Conflict{},
		ServerChanges:       []api.Change{},
		AppliedOperationIDs: []string{},
		FailedOperations:    []api.OperationFailure{},
		ServerTimestamp:     serverTS,
	}

	for _, op := range req.Operations {
		conflict, opErr := s.applyOperation(ctx, tx, userID, op, serverTS)
		switch {
		case opErr != nil:
			s.logger.Warn("Sync operation failed",
				"user_id", userID,
				"operation_id", op.ID,
				"table", op.Table,
				"error", opErr)
			resp.FailedOperations = append(resp.FailedOperations, api.OperationFailure{
				ID:    op.ID,
				Error: opErr.Error(),
			})
		case conflict != nil:
			s.logger.Info("Sync conflict detected",
				"user_id", userID,
				"operation_id", op.ID,
				"table", op.Table,
				"conflict_type", conflict.ConflictType)
			resp.Conflicts = append(resp.Conflicts, *conflict)
		default:
			resp.AppliedOperationIDs = append(resp.AppliedOperationIDs, op.ID)
		}
	}

	changes, err := s.collectChanges(ctx, tx, userID, req.LastSyncTimestamp, serverTS)
	if err != nil {
		return nil, fmt.Errorf("failed to collect server changes: %w", err)
	}
	resp.ServerChanges = changes

	if err := s.advanceCheckpoint(ctx, tx, userID, req.DeviceID, serverTS); err != nil {
		return nil, fmt.Errorf("failed to advance checkpoint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sync round: %w", err)
	}

	resp.Success = true

	s.logger.Info("Sync round completed",
		"user_id", userID,
		"device_id", req.DeviceID,
		"applied", len(resp.AppliedOperationIDs),
		"conflicts", len(resp.Conflicts),
		"failed", len(resp.FailedOperations),
		"server_changes", len(resp.ServerChanges),
		"server_timestamp", serverTS)

	return resp, nil
}

// Changes возвращает серверные дельты с момента since без применения
// операций и без продвижения checkpoint. Read-only вариант для
// устройства, которое только проверяет наличие изменений.
func (s *Service) Changes(ctx context.Context, userID string, since int64) ([]api.Change, int64, error) {
	serverTS := time.Now().UnixMilli()

	tx, err := s.storage.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	changes, err := s.collectChanges(ctx, tx, userID, since, serverTS)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to collect server changes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit read transaction: %w", err)
	}

	return changes, serverTS, nil
}

// advanceCheckpoint продвигает checkpoint пары (user, device) на
// serverTS и снимает флаг sync_in_progress. Первый sync устройства
// создает checkpoint, дальше он только обновляется.
func (s *Service) advanceCheckpoint(ctx context.Context, tx storage.Tx, userID, deviceID string, serverTS int64) error {
	createdAt := serverTS

	existing, err := tx.GetCheckpoint(ctx, userID, deviceID)
	if err != nil && !errors.Is(err, storage.ErrCheckpointNotFound) {
		return fmt.Errorf("failed to get checkpoint: %w", err)
	}
	if existing != nil {
		createdAt = existing.CreatedAt
	}

	cp := &models.Checkpoint{
		UserID:     userID,
		DeviceID:   deviceID,
		LastSync:   serverTS,
		InProgress: false,
		CreatedAt:  createdAt,
		UpdatedAt:  serverTS,
	}

	return tx.UpsertCheckpoint(ctx, cp)
}
