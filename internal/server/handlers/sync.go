package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ledgerkeeper/ledgerkeeper/internal/validation"
	"github.com/ledgerkeeper/ledgerkeeper/pkg/api"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// UserIDKey ключ для хранения user_id в контексте
	UserIDKey contextKey = "user_id"
	// UsernameKey ключ для хранения username в контексте
	UsernameKey contextKey = "username"
)

// GetUserID извлекает user_id из контекста запроса
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUsername извлекает username из контекста запроса
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}

// SyncService определяет интерфейс движка синхронизации
type SyncService interface {
	ProcessSync(ctx context.Context, userID string, req *api.SyncRequest) (*api.SyncResponse, error)
	Changes(ctx context.Context, userID string, since int64) ([]api.Change, int64, error)
}

// SyncHandler handles synchronization requests
type SyncHandler struct {
	logger  *slog.Logger
	service SyncService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, service SyncService) *SyncHandler {
	return &SyncHandler{
		logger:  logger,
		service: service,
	}
}

// HandleSync обрабатывает POST /api/v1/sync — один раунд синхронизации.
// Идентичность вызывающего берется из контекста (установлена
// AuthMiddleware) и не перепроверяется.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req api.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode sync request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Малформленный запрос (без валидного device_id) отклоняется целиком,
	// до обработки операций: ключ checkpoint был бы бессмысленным.
	if err := validation.ValidateDeviceID(req.DeviceID); err != nil {
		h.logger.Warn("Invalid device_id in sync request", "error", err)
		http.Error(w, "Invalid device_id", http.StatusBadRequest)
		return
	}

	h.logger.Info("Sync request",
		"user_id", userID,
		"device_id", req.DeviceID,
		"last_sync_timestamp", req.LastSyncTimestamp,
		"operations_count", len(req.Operations))

	resp, err := h.service.ProcessSync(ctx, userID, &req)
	if err != nil {
		// Ошибка уровня раунда: транзакция откачена, ничего не применено
		h.logger.Error("Sync round failed", "error", err, "user_id", userID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, resp)
}

// HandleChanges обрабатывает GET /api/v1/sync/changes?since=timestamp —
// read-only выборку серверных дельт, без применения операций и без
// продвижения checkpoint.
func (h *SyncHandler) HandleChanges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	sinceStr := r.URL.Query().Get("since")
	var since int64
	if sinceStr != "" {
		var err error
		since, err = strconv.ParseInt(sinceStr, 10, 64)
		if err != nil {
			h.logger.Warn("Invalid since parameter", "since", sinceStr, "error", err)
			http.Error(w, "Invalid since parameter", http.StatusBadRequest)
			return
		}
	}

	changes, serverTS, err := h.service.Changes(ctx, userID, since)
	if err != nil {
		h.logger.Error("Failed to collect changes", "error", err, "user_id", userID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.SyncResponse{
		Conflicts:           []api.Conflict{},
		ServerChanges:       changes,
		AppliedOperationIDs: []string{},
		FailedOperations:    []api.OperationFailure{},
		ServerTimestamp:     serverTS,
		Success:             true,
	}

	writeJSON(w, h.logger, resp)

	h.logger.Info("Changes request completed",
		"user_id", userID,
		"since", since,
		"changes_count", len(changes))
}

// writeJSON кодирует ответ в JSON
func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
