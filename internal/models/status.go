package models

// SyncState состояние движка синхронизации
type SyncState string

const (
	SyncStateDisabled  SyncState = "disabled"
	SyncStateIdle      SyncState = "idle"
	SyncStateSyncing   SyncState = "syncing"
	SyncStateCompleted SyncState = "completed"
	SyncStateConflicts SyncState = "conflicts"
	SyncStateError     SyncState = "error"
)

// SyncStatus текущее (не персистентное) состояние синхронизации
type SyncStatus struct {
	State             SyncState `json:"state"`
	Message           string    `json:"message,omitempty"`
	LastSyncTimestamp int64     `json:"last_sync_timestamp"` // unix millis
	TotalItems        int       `json:"total_items"`
	ProcessedItems    int       `json:"processed_items"`
}
