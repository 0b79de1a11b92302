package api

import "encoding/json"

// Виды клиентских операций
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Виды конфликтов, см. Conflict.ConflictType
const (
	ConflictCreate = "create_conflict"
	ConflictUpdate = "update_conflict"
	ConflictDelete = "delete_conflict"
)

// Operation представляет одну клиентскую мутацию.
// ID уникален для операции, а не для записи: повторная отправка той же
// операции после сбоя раунда безопасна.
type Operation struct {
	ID              string          `json:"id"`
	Table           string          `json:"table"`
	Op              string          `json:"operation"`
	Data            json.RawMessage `json:"data"`
	ClientTimestamp int64           `json:"client_timestamp"` // epoch ms; для create — время создания, для update/delete — версия, от которой клиент мутирует
}

// SyncRequest представляет запрос на один раунд синхронизации.
// LastSyncTimestamp == 0 означает полный ресинк.
type SyncRequest struct {
	Operations        []Operation `json:"operations"`
	DeviceID          string      `json:"device_id"`
	LastSyncTimestamp int64       `json:"last_sync_timestamp,omitempty"`
}

// Change представляет серверное изменение, доставляемое клиенту.
// ID синтетический: он идентифицирует дельту, а не клиентскую операцию.
// ClientTimestamp всегда 0 — признак серверного происхождения.
type Change struct {
	ID              string          `json:"id"`
	Table           string          `json:"table"`
	Op              string          `json:"operation"`
	Data            json.RawMessage `json:"data"`
	ClientTimestamp int64           `json:"client_timestamp"`
}

// Conflict описывает расхождение клиентской и серверной версий одной
// записи. Движок синхронизации конфликт только репортит — разрешение
// выполняет отдельный эндпоинт.
type Conflict struct {
	OperationID     string          `json:"operation_id"`
	Table           string          `json:"table"`
	RecordID        string          `json:"record_id"`
	ClientData      json.RawMessage `json:"client_data"`
	ServerData      json.RawMessage `json:"server_data"`
	ConflictType    string          `json:"conflict_type"`
	ClientTimestamp int64           `json:"client_timestamp"`
	ServerTimestamp int64           `json:"server_timestamp"`
}

// OperationFailure описывает операцию, отклонённую по ошибке:
// неизвестная таблица, чужие данные, запись не найдена.
type OperationFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// SyncResponse представляет ответ сервера на один раунд синхронизации.
// ServerTimestamp — момент начала раунда; им же ограничено окно
// ServerChanges и проставлен новый checkpoint устройства.
type SyncResponse struct {
	Conflicts           []Conflict         `json:"conflicts"`
	ServerChanges       []Change           `json:"server_changes"`
	AppliedOperationIDs []string           `json:"applied_operation_ids"`
	FailedOperations    []OperationFailure `json:"failed_operations"`
	ServerTimestamp     int64              `json:"server_timestamp"`
	Success             bool               `json:"success"`
}

// Стратегии для эндпоинта разрешения конфликтов (внешний коллаборатор)
const (
	ResolutionClient = "client"
	ResolutionServer = "server"
	ResolutionMerge  = "merge"
)

// ConflictResolution представляет выбор клиента для ранее
// зарепорченного конфликта.
type ConflictResolution struct {
	OperationID string          `json:"operation_id"`
	Resolution  string          `json:"resolution"`
	MergedData  json.RawMessage `json:"merged_data,omitempty"`
}
