package models

import "encoding/json"

// Record представляет одну синхронизируемую запись на сервере.
// Схема одинакова для всех таблиц из allowlist: управляемые движком
// поля вынесены в колонки, остальные поля сущности лежат в Data (JSON).
type Record struct {
	Data      json.RawMessage `json:"data"`       // Data поля сущности без id и user_id
	ID        string          `json:"id"`         // ID идентификатор записи (задаётся клиентом при create)
	UserID    string          `json:"user_id"`    // UserID владелец записи, неизменяем после создания
	SyncedAt  *int64          `json:"synced_at"`  // SyncedAt момент последней доставки через sync, nil = ещё не доставлялась
	CreatedAt int64           `json:"created_at"` // CreatedAt момент создания, epoch ms
	UpdatedAt int64           `json:"updated_at"` // UpdatedAt момент последнего изменения, epoch ms
	Active    bool            `json:"active"`     // Active false = логически удалена
}

// ModifiedAfter сообщает, изменялась ли запись строго после ts.
// Это правило обнаружения конфликтов: сервер видел версию,
// которую клиент ещё не видел.
func (r *Record) ModifiedAfter(ts int64) bool {
	return r.UpdatedAt > ts
}

// Clone создает глубокую копию записи
func (r *Record) Clone() *Record {
	data := make(json.RawMessage, len(r.Data))
	copy(data, r.Data)

	var syncedAt *int64
	if r.SyncedAt != nil {
		v := *r.SyncedAt
		syncedAt = &v
	}

	return &Record{
		Data:      data,
		ID:        r.ID,
		UserID:    r.UserID,
		SyncedAt:  syncedAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Active:    r.Active,
	}
}
