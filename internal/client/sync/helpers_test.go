package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/mealsync/internal/client/conflict"
	"github.com/iudanet/mealsync/internal/client/pending"
	"github.com/iudanet/mealsync/internal/client/storage/boltdb"
	"github.com/iudanet/mealsync/internal/clock"
	"github.com/iudanet/mealsync/internal/models"
)

var (
	t0             = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	errUnavailable = errors.New("server unavailable")
)

// fakeServer in-memory удаленное хранилище для RemoteAPIMock
type fakeServer struct {
	mu       gosync.Mutex
	entities map[string]*models.Entity
	fail     error
	fetchErr error
}

func newFakeServer() *fakeServer {
	return &fakeServer{entities: make(map[string]*models.Entity)}
}

func (f *fakeServer) put(e *models.Entity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entities[models.EntityKey(e.Type, e.ID)] = e.Clone()
}

func (f *fakeServer) get(t models.EntityType, id string) *models.Entity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entities[models.EntityKey(t, id)].Clone()
}

func (f *fakeServer) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeServer) mock() *RemoteAPIMock {
	return &RemoteAPIMock{
		FetchAllFunc: func(ctx context.Context, entityType models.EntityType) ([]*models.Entity, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.fetchErr != nil {
				return nil, f.fetchErr
			}
			var out []*models.Entity
			for _, e := range f.entities {
				if e.Type == entityType {
					out = append(out, e.Clone())
				}
			}
			return out, nil
		},
		CreateFunc: func(ctx context.Context, entity *models.Entity) (*models.Entity, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.fail != nil {
				return nil, f.fail
			}
			f.entities[models.EntityKey(entity.Type, entity.ID)] = entity.Clone()
			return entity, nil
		},
		UpdateFunc: func(ctx context.Context, id string, entity *models.Entity) (*models.Entity, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.fail != nil {
				return nil, f.fail
			}
			f.entities[models.EntityKey(entity.Type, id)] = entity.Clone()
			return entity, nil
		},
		DeleteFunc: func(ctx context.Context, entityType models.EntityType, id string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.fail != nil {
				return f.fail
			}
			delete(f.entities, models.EntityKey(entityType, id))
			return nil
		},
	}
}

type testEnv struct {
	svc      *Service
	db       *boltdb.Storage
	api      *RemoteAPIMock
	server   *fakeServer
	online   *atomic.Bool
	clk      *clock.Manual
	pending  *pending.Store
	resolver *conflict.Resolver
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := boltdb.New(ctx, filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return newTestEnvWithDB(t, db, now)
}

func newTestEnvWithDB(t *testing.T, db *boltdb.Storage, now time.Time) *testEnv {
	t.Helper()
	return newTestEnvWith(t, db, newFakeServer(), now)
}

// newDeviceEnv еще одно устройство с собственной базой поверх общего сервера
func newDeviceEnv(t *testing.T, server *fakeServer, now time.Time) *testEnv {
	t.Helper()

	db, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "device.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return newTestEnvWith(t, db, server, now)
}

func newTestEnvWith(t *testing.T, db *boltdb.Storage, server *fakeServer, now time.Time) *testEnv {
	t.Helper()
	ctx := context.Background()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewManual(now)

	store, err := pending.NewStore(ctx, db, db, clk, logger)
	require.NoError(t, err)

	resolver := conflict.NewResolver(clk, logger)
	api := server.mock()

	online := &atomic.Bool{}
	online.Store(true)
	conn := &ConnectivityMock{
		IsOnlineFunc: func(ctx context.Context) bool { return online.Load() },
	}

	svc, err := NewService(ctx, Deps{
		API:           api,
		Entities:      db,
		Metadata:      db,
		Pending:       store,
		Conflicts:     resolver,
		Connectivity:  conn,
		ConflictStore: db,
	}, Options{Clock: clk, Workers: 2}, logger)
	require.NoError(t, err)

	return &testEnv{
		svc:      svc,
		db:       db,
		api:      api,
		server:   server,
		online:   online,
		clk:      clk,
		pending:  store,
		resolver: resolver,
	}
}

func recipe(id, name string, duration int, updatedAt time.Time) *models.Entity {
	return &models.Entity{
		ID:        id,
		Type:      models.EntityRecipe,
		Name:      name,
		Duration:  duration,
		Items:     []string{"flour"},
		UpdatedAt: updatedAt,
	}
}
