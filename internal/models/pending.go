package models

import "time"

const (
	// MaxRetries количество неудачных попыток, после которого запись становится Failed
	MaxRetries = 5
	// PendingRetention срок хранения записей независимо от статуса
	PendingRetention = 7 * 24 * time.Hour
)

// PendingStatus статус записи в хранилище отложенных мутаций
type PendingStatus string

const (
	PendingStatusPending PendingStatus = "pending"
	PendingStatusSyncing PendingStatus = "syncing"
	PendingStatusFailed  PendingStatus = "failed"
	PendingStatusSynced  PendingStatus = "synced"
)

// PendingMutationRecord durable form of a SyncItem that could not be confirmed by the server.
type PendingMutationRecord struct {
	CreatedAt     time.Time     `json:"created_at"`
	LastAttemptAt time.Time     `json:"last_attempt_at"` // zero, если повторов ещё не было
	Item          SyncItem      `json:"item"`
	Status        PendingStatus `json:"status"`
}

// RecordKey matches records by id, type and action.
func RecordKey(item *SyncItem) string {
	return EntityKey(item.EntityType, item.ID) + "/" + string(item.Action)
}

// ToSyncItem возвращает копию мутации с восстановленным RetryCount
func (r *PendingMutationRecord) ToSyncItem() SyncItem {
	item := r.Item
	if r.Item.Payload != nil {
		item.Payload = append([]byte(nil), r.Item.Payload...)
	}
	return item
}
