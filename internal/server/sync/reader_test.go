package sync

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/pkg/api"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func TestDeriveChangeKind(t *testing.T) {
	tests := []struct {
		name string
		rec  *models.Record
		want string
	}{
		{
			name: "inactive record is delete",
			rec:  &models.Record{Active: false, SyncedAt: int64Ptr(100), CreatedAt: 50},
			want: api.OpDelete,
		},
		{
			name: "never synced is create",
			rec:  &models.Record{Active: true, SyncedAt: nil, CreatedAt: 50},
			want: api.OpCreate,
		},
		{
			name: "created at sync instant is create",
			rec:  &models.Record{Active: true, SyncedAt: int64Ptr(100), CreatedAt: 100},
			want: api.OpCreate,
		},
		{
			name: "created before last sync is update",
			rec:  &models.Record{Active: true, SyncedAt: int64Ptr(100), CreatedAt: 50},
			want: api.OpUpdate,
		},
		{
			name: "inactive wins over never synced",
			rec:  &models.Record{Active: false, SyncedAt: nil, CreatedAt: 50},
			want: api.OpDelete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveChangeKind(tt.rec))
		})
	}
}

func TestRenderRecordData(t *testing.T) {
	createdAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	updatedAt := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)

	rec := &models.Record{
		Data:      json.RawMessage(`{"name":"Checking","balance":1234.56}`),
		ID:        "acct-1",
		UserID:    "user-1",
		CreatedAt: createdAt.UnixMilli(),
		UpdatedAt: updatedAt.UnixMilli(),
		Active:    true,
	}

	var data map[string]any
	require.NoError(t, json.Unmarshal(renderRecordData(rec), &data))

	assert.Equal(t, "acct-1", data["id"])
	assert.Equal(t, "user-1", data["user_id"])
	assert.Equal(t, "Checking", data["name"])
	assert.Equal(t, 1234.56, data["balance"])
	assert.Equal(t, false, data["deleted"])

	// Все моменты времени — канонический RFC3339 UTC
	assert.Equal(t, "2024-03-01T12:00:00Z", data["created_at"])
	assert.Equal(t, "2024-03-02T09:30:00Z", data["updated_at"])
}

func TestRenderRecordData_CorruptPayload(t *testing.T) {
	rec := &models.Record{
		Data:      json.RawMessage(`{not-json`),
		ID:        "acct-1",
		UserID:    "user-1",
		CreatedAt: 1000,
		UpdatedAt: 2000,
		Active:    false,
	}

	// Порча payload не выходит наружу: fallback на пустой объект,
	// управляемые поля всё равно присутствуют
	var data map[string]any
	require.NoError(t, json.Unmarshal(renderRecordData(rec), &data))

	assert.Equal(t, "acct-1", data["id"])
	assert.Equal(t, true, data["deleted"])
	assert.NotContains(t, data, "name")
}

func TestFormatInstant(t *testing.T) {
	ms := time.Date(2024, 1, 15, 8, 45, 30, 0, time.UTC).UnixMilli()
	assert.Equal(t, "2024-01-15T08:45:30Z", formatInstant(ms))
}
