package storage

import (
	"context"
	"time"
)

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage persists engine configuration and sync bookkeeping
type MetadataStorage interface {
	// SaveLastSyncTimestamp saves the timestamp (unix millis) of the last successful full sync
	SaveLastSyncTimestamp(ctx context.Context, timestamp int64) error

	// GetLastSyncTimestamp retrieves the timestamp of the last successful full sync
	// Returns 0 if no sync has been performed yet
	GetLastSyncTimestamp(ctx context.Context) (int64, error)

	// GetDeviceID returns the per-installation id, generating and persisting it on first call
	GetDeviceID(ctx context.Context) (string, error)

	// SetSyncEnabled toggles automatic draining
	SetSyncEnabled(ctx context.Context, enabled bool) error

	// IsSyncEnabled returns true if nothing was saved yet
	IsSyncEnabled(ctx context.Context) (bool, error)

	// SetSyncInterval saves the periodic trigger cadence
	SetSyncInterval(ctx context.Context, interval time.Duration) error

	// GetSyncInterval returns 0 if nothing was saved yet
	GetSyncInterval(ctx context.Context) (time.Duration, error)

	// SetOfflineModeEnabled toggles durable storage of failed mutations
	SetOfflineModeEnabled(ctx context.Context, enabled bool) error

	// IsOfflineModeEnabled returns true if nothing was saved yet
	IsOfflineModeEnabled(ctx context.Context) (bool, error)
}
