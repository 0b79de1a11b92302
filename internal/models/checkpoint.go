package models

// Checkpoint хранит момент последней успешной синхронизации для пары
// (пользователь, устройство). Создается при первом sync устройства,
// обновляется каждым раундом, никогда не удаляется.
type Checkpoint struct {
	UserID     string `json:"user_id"`
	DeviceID   string `json:"device_id"`
	LastSync   int64  `json:"last_sync"` // epoch ms, не убывает между успешными раундами
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
	InProgress bool   `json:"sync_in_progress"`
}
