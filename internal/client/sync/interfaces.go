package sync

import (
	"context"

	"github.com/iudanet/mealsync/internal/models"
)

//go:generate moq -out remoteapi_mock.go . RemoteAPI

// RemoteAPI is the server-side entity store.
// Only the Service calls it.
type RemoteAPI interface {
	FetchAll(ctx context.Context, entityType models.EntityType) ([]*models.Entity, error)
	Create(ctx context.Context, entity *models.Entity) (*models.Entity, error)
	Update(ctx context.Context, id string, entity *models.Entity) (*models.Entity, error)
	Delete(ctx context.Context, entityType models.EntityType, id string) error
}

//go:generate moq -out connectivity_mock.go . Connectivity

// Connectivity reports whether the server is reachable
type Connectivity interface {
	IsOnline(ctx context.Context) bool
}

// PendingStore durable retry queue (pending.Store)
type PendingStore interface {
	StorePending(ctx context.Context, item models.SyncItem) error
	ListPending(ctx context.Context) ([]models.SyncItem, error)
	ListRetryable(ctx context.Context) ([]models.SyncItem, error)
	MarkSyncing(ctx context.Context, item models.SyncItem) error
	MarkSynced(ctx context.Context, item models.SyncItem) error
	IncrementRetry(ctx context.Context, item models.SyncItem) (int, error)
	HandleSyncFailure(ctx context.Context, entityType models.EntityType) error
	CleanupOld(ctx context.Context) (int, error)
}

// ConflictResolver holds open conflicts (conflict.Resolver)
type ConflictResolver interface {
	AddConflict(local, server *models.Entity) *models.ConflictResolution
	Restore(conflicts []*models.ConflictResolution)
	Get(id string) (*models.ConflictResolution, error)
	ListConflicts() []*models.ConflictResolution
	ResolveConflict(id string, strategy models.ConflictStrategy, custom *models.Entity) (*models.ConflictResolution, error)
	ClearResolved() int
	HasUnresolved() bool
	CountUnresolved() int
}
