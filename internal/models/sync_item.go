package models

import "time"

// Action тип мутации
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// SyncItem описывает одну мутацию, ожидающую отправки на сервер.
// Timestamp - время создания мутации, а не время изменения сущности.
type SyncItem struct {
	Timestamp      time.Time  `json:"timestamp"`
	ID             string     `json:"id"`
	EntityType     EntityType `json:"entity_type"`
	Action         Action     `json:"action"`
	OriginDeviceID string     `json:"origin_device_id"`
	Payload        []byte     `json:"payload,omitempty"` // nil для delete
	RetryCount     int        `json:"retry_count"`
}

// Key identifies the target entity. The queue keeps at most one live item per key.
func (i *SyncItem) Key() string {
	return EntityKey(i.EntityType, i.ID)
}

// EntityKey builds the "<type>/<id>" key used by queues and stores.
func EntityKey(t EntityType, id string) string {
	return string(t) + "/" + id
}
