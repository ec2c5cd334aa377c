package cli

import (
	"context"
	"time"

	"github.com/iudanet/mealsync/internal/client/pending"
	"github.com/iudanet/mealsync/internal/client/storage"
	"github.com/iudanet/mealsync/internal/models"
)

// Authenticator сессия пользователя (auth.Service)
type Authenticator interface {
	Register(ctx context.Context, username, password string) (string, error)
	Login(ctx context.Context, username, password string) (*storage.Session, error)
	Restore(ctx context.Context) (*storage.Session, error)
	Logout(ctx context.Context) error
}

// DataService локальные изменения сущностей (data.Service)
type DataService interface {
	Add(ctx context.Context, e *models.Entity) (*models.Entity, error)
	Update(ctx context.Context, e *models.Entity) (*models.Entity, error)
	Delete(ctx context.Context, entityType models.EntityType, id string) (*models.Entity, error)
	Get(ctx context.Context, entityType models.EntityType, id string) (*models.Entity, error)
	List(ctx context.Context, entityType models.EntityType) ([]*models.Entity, error)
}

// Engine движок синхронизации (sync.Service)
type Engine interface {
	Drain(ctx context.Context)
	Flush(ctx context.Context) (int, error)
	FullSync(ctx context.Context) error
	Run(ctx context.Context) error
	CurrentStatus() models.SyncStatus
	SubscribeStatus(ctx context.Context) <-chan models.SyncStatus
	PendingItems() []models.SyncItem
	Conflicts() []*models.ConflictResolution
	ResolveConflict(ctx context.Context, id string, strategy models.ConflictStrategy, custom *models.Entity) (*models.ConflictResolution, error)
	SyncEnabled() bool
	Interval() time.Duration
	SetSyncEnabled(ctx context.Context, enabled bool) error
	SetSyncInterval(ctx context.Context, interval time.Duration) error
	DeviceID() string
}

// PendingQueue хранилище отложенных мутаций (pending.Store)
type PendingQueue interface {
	Records(ctx context.Context) ([]*models.PendingMutationRecord, error)
	Counts(ctx context.Context) (pending.Counts, error)
	ClearFailed(ctx context.Context) (int, error)
	SetOfflineModeEnabled(ctx context.Context, enabled bool) error
	IsOfflineModeEnabled() bool
}
