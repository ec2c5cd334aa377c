package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/mealsync/internal/models"
)

func TestHasConflict(t *testing.T) {
	lastSync := t0.UnixMilli()

	tests := []struct {
		name   string
		local  time.Time
		server time.Time
		want   bool
	}{
		{name: "both changed", local: t0.Add(time.Minute), server: t0.Add(2 * time.Minute), want: true},
		{name: "only server changed", local: t0.Add(-time.Hour), server: t0.Add(time.Hour), want: false},
		{name: "only local changed", local: t0.Add(time.Hour), server: t0.Add(-time.Hour), want: false},
		{name: "neither changed", local: t0.Add(-time.Hour), server: t0.Add(-2 * time.Hour), want: false},
		{name: "equal to last sync is not a change", local: t0, server: t0.Add(time.Minute), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := recipe("r1", "Soup", 30, tt.local)
			server := recipe("r1", "Soup", 30, tt.server)
			assert.Equal(t, tt.want, HasConflict(local, server, lastSync))
		})
	}
}

// Scenario A: изменился только сервер
func TestFullSync_ServerOnlyChange(t *testing.T) {
	env := newTestEnv(t, t0.Add(3*time.Hour))
	ctx := context.Background()

	require.NoError(t, env.db.SaveLastSyncTimestamp(ctx, t0.Add(-time.Hour).UnixMilli()))
	require.NoError(t, env.db.Insert(ctx, recipe("r1", "Soup", 30, t0)))
	env.server.put(recipe("r1", "Better soup", 40, t0.Add(2*time.Hour)))

	require.NoError(t, env.svc.FullSync(ctx))

	local, err := env.db.Get(ctx, models.EntityRecipe, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Better soup", local.Name)
	assert.True(t, local.UpdatedAt.Equal(t0.Add(2*time.Hour)))

	status := env.svc.CurrentStatus()
	assert.Equal(t, models.SyncStateCompleted, status.State)
	assert.Equal(t, t0.Add(3*time.Hour).UnixMilli(), status.LastSyncTimestamp)

	saved, err := env.db.GetLastSyncTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.LastSyncTimestamp, saved)
	assert.Empty(t, env.svc.Conflicts())
}

func TestFullSync_LastWriteWins(t *testing.T) {
	env := newTestEnv(t, t0.Add(5*time.Hour))
	ctx := context.Background()

	// lastSync после всех изменений: конфликтов нет, работает только LWW
	require.NoError(t, env.db.SaveLastSyncTimestamp(ctx, t0.Add(4*time.Hour).UnixMilli()))

	require.NoError(t, env.db.Insert(ctx, recipe("local-newer", "local", 10, t0.Add(2*time.Hour))))
	env.server.put(recipe("local-newer", "server", 20, t0.Add(time.Hour)))

	require.NoError(t, env.db.Insert(ctx, recipe("server-newer", "local", 10, t0.Add(time.Hour))))
	env.server.put(recipe("server-newer", "server", 20, t0.Add(2*time.Hour)))

	env.server.put(recipe("server-only", "server", 20, t0))
	require.NoError(t, env.db.Insert(ctx, recipe("local-only", "local", 10, t0)))

	plan := &models.Entity{ID: "p1", Type: models.EntityMealPlan, Name: "Week", UpdatedAt: t0}
	env.server.put(plan)

	require.NoError(t, env.svc.FullSync(ctx))

	tests := []struct {
		id       string
		wantName string
		wantTime time.Time
	}{
		{id: "local-newer", wantName: "local", wantTime: t0.Add(2 * time.Hour)},
		{id: "server-newer", wantName: "server", wantTime: t0.Add(2 * time.Hour)},
		{id: "server-only", wantName: "server", wantTime: t0},
		{id: "local-only", wantName: "local", wantTime: t0},
	}
	for _, tt := range tests {
		got, err := env.db.Get(ctx, models.EntityRecipe, tt.id)
		require.NoError(t, err, tt.id)
		assert.Equal(t, tt.wantName, got.Name, tt.id)
		assert.True(t, got.UpdatedAt.Equal(tt.wantTime), tt.id)
	}

	gotPlan, err := env.db.Get(ctx, models.EntityMealPlan, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Week", gotPlan.Name)

	assert.Len(t, env.api.FetchAllCalls(), len(models.AllEntityTypes()))
	assert.Empty(t, env.api.UpdateCalls())
}

// Scenario B: оба изменения после lastSync, совместимые версии сливаются автоматически
func TestFullSync_ConflictAutoMerged(t *testing.T) {
	env := newTestEnv(t, t0.Add(time.Hour))
	ctx := context.Background()

	require.NoError(t, env.db.SaveLastSyncTimestamp(ctx, t0.UnixMilli()))
	require.NoError(t, env.db.Insert(ctx, recipe("r1", "Soup", 30, t0.Add(30*time.Minute))))
	env.server.put(recipe("r1", "Soup", 40, t0.Add(40*time.Minute)))

	require.NoError(t, env.svc.FullSync(ctx))

	local, err := env.db.Get(ctx, models.EntityRecipe, "r1")
	require.NoError(t, err)
	assert.Equal(t, 35, local.Duration)
	assert.True(t, local.UpdatedAt.Equal(t0.Add(time.Hour)))

	// Слитая версия отправляется на сервер
	items := env.svc.PendingItems()
	require.Len(t, items, 1)
	assert.Equal(t, models.ActionUpdate, items[0].Action)
	pushed, err := models.DecodePayload(items[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, 35, pushed.Duration)

	assert.Empty(t, env.svc.Conflicts())
	assert.Equal(t, models.SyncStateCompleted, env.svc.CurrentStatus().State)

	// После отправки следующая синхронизация ничего не меняет
	env.svc.Drain(ctx)
	assert.Equal(t, 35, env.server.get(models.EntityRecipe, "r1").Duration)

	env.clk.Advance(time.Minute)
	require.NoError(t, env.svc.FullSync(ctx))
	assert.Empty(t, env.svc.Conflicts())
	assert.Empty(t, env.svc.PendingItems())
}

func TestFullSync_UnresolvedConflict(t *testing.T) {
	env := newTestEnv(t, t0.Add(time.Hour))
	ctx := context.Background()

	require.NoError(t, env.db.SaveLastSyncTimestamp(ctx, t0.UnixMilli()))
	require.NoError(t, env.db.Insert(ctx, recipe("r1", "Soup", 30, t0.Add(30*time.Minute))))
	env.server.put(recipe("r1", "Stew", 90, t0.Add(40*time.Minute)))

	require.NoError(t, env.svc.FullSync(ctx))

	status := env.svc.CurrentStatus()
	assert.Equal(t, models.SyncStateConflicts, status.State)
	assert.NotEmpty(t, status.Message)

	conflicts := env.svc.Conflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, "recipe_r1", conflicts[0].ID)
	assert.False(t, conflicts[0].Resolved)

	// Локальная копия не перезаписана
	local, err := env.db.Get(ctx, models.EntityRecipe, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Soup", local.Name)

	stored, err := env.db.ListConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	// Конфликт переживает следующую синхронизацию, хотя lastSync уже сдвинулся
	env.clk.Advance(time.Minute)
	require.NoError(t, env.svc.FullSync(ctx))
	assert.Len(t, env.svc.Conflicts(), 1)

	c, err := env.svc.ResolveConflict(ctx, "recipe_r1", models.StrategyUseServer, nil)
	require.NoError(t, err)
	assert.True(t, c.Resolved)

	local, err = env.db.Get(ctx, models.EntityRecipe, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Stew", local.Name)

	assert.Empty(t, env.svc.PendingItems())
	assert.Empty(t, env.svc.Conflicts())
	assert.Equal(t, models.SyncStateCompleted, env.svc.CurrentStatus().State)

	stored, err = env.db.ListConflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestResolveConflict_UseLocalPushes(t *testing.T) {
	env := newTestEnv(t, t0.Add(time.Hour))
	ctx := context.Background()

	require.NoError(t, env.db.SaveLastSyncTimestamp(ctx, t0.UnixMilli()))
	require.NoError(t, env.db.Insert(ctx, recipe("r1", "Soup", 30, t0.Add(30*time.Minute))))
	env.server.put(recipe("r1", "Stew", 90, t0.Add(40*time.Minute)))
	require.NoError(t, env.svc.FullSync(ctx))

	_, err := env.svc.ResolveConflict(ctx, "recipe_r1", models.StrategyUseLocal, nil)
	require.NoError(t, err)

	items := env.svc.PendingItems()
	require.Len(t, items, 1)
	assert.Equal(t, models.ActionUpdate, items[0].Action)

	env.svc.Drain(ctx)
	assert.Equal(t, "Soup", env.server.get(models.EntityRecipe, "r1").Name)

	_, err = env.svc.ResolveConflict(ctx, "recipe_r1", models.StrategyUseLocal, nil)
	assert.Error(t, err)
}

// Победившая локальная версия старше серверной: после отправки она должна
// вытеснить серверную копию и на других устройствах
func TestResolveConflict_UseLocalReachesOtherDevices(t *testing.T) {
	ctx := context.Background()
	server := newFakeServer()
	server.put(recipe("r1", "Stew", 90, t0.Add(40*time.Minute)))

	a := newDeviceEnv(t, server, t0.Add(time.Hour))
	require.NoError(t, a.db.SaveLastSyncTimestamp(ctx, t0.UnixMilli()))
	require.NoError(t, a.db.Insert(ctx, recipe("r1", "Soup", 30, t0.Add(30*time.Minute))))

	b := newDeviceEnv(t, server, t0.Add(2*time.Hour))
	require.NoError(t, b.db.SaveLastSyncTimestamp(ctx, t0.Add(45*time.Minute).UnixMilli()))
	require.NoError(t, b.db.Insert(ctx, recipe("r1", "Stew", 90, t0.Add(40*time.Minute))))

	require.NoError(t, a.svc.FullSync(ctx))
	require.Len(t, a.svc.Conflicts(), 1)

	_, err := a.svc.ResolveConflict(ctx, "recipe_r1", models.StrategyUseLocal, nil)
	require.NoError(t, err)

	local, err := a.db.Get(ctx, models.EntityRecipe, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Soup", local.Name)
	assert.True(t, local.UpdatedAt.Equal(t0.Add(time.Hour)))

	a.svc.Drain(ctx)
	pushed := server.get(models.EntityRecipe, "r1")
	assert.Equal(t, "Soup", pushed.Name)
	assert.True(t, pushed.UpdatedAt.Equal(t0.Add(time.Hour)))

	require.NoError(t, b.svc.FullSync(ctx))
	got, err := b.db.Get(ctx, models.EntityRecipe, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Soup", got.Name)
	assert.Empty(t, b.svc.Conflicts())
}

func TestResolveConflict_UseServerKeepsServerTime(t *testing.T) {
	env := newTestEnv(t, t0.Add(time.Hour))
	ctx := context.Background()

	require.NoError(t, env.db.SaveLastSyncTimestamp(ctx, t0.UnixMilli()))
	require.NoError(t, env.db.Insert(ctx, recipe("r1", "Soup", 30, t0.Add(30*time.Minute))))
	env.server.put(recipe("r1", "Stew", 90, t0.Add(40*time.Minute)))
	require.NoError(t, env.svc.FullSync(ctx))

	_, err := env.svc.ResolveConflict(ctx, "recipe_r1", models.StrategyUseServer, nil)
	require.NoError(t, err)

	local, err := env.db.Get(ctx, models.EntityRecipe, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Stew", local.Name)
	assert.True(t, local.UpdatedAt.Equal(t0.Add(40*time.Minute)))
	assert.Empty(t, env.svc.PendingItems())
}

func TestFullSync_DisabledMeanwhileStaysDisabled(t *testing.T) {
	env := newTestEnv(t, t0.Add(time.Hour))
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	var once gosync.Once
	fetch := env.api.FetchAllFunc
	env.api.FetchAllFunc = func(ctx context.Context, entityType models.EntityType) ([]*models.Entity, error) {
		once.Do(func() {
			close(started)
			<-release
		})
		return fetch(ctx, entityType)
	}

	done := make(chan error, 1)
	go func() { done <- env.svc.FullSync(ctx) }()

	<-started
	require.NoError(t, env.svc.SetSyncEnabled(ctx, false))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, models.SyncStateDisabled, env.svc.CurrentStatus().State)
}

func TestService_RestoresConflicts(t *testing.T) {
	env := newTestEnv(t, t0.Add(time.Hour))
	ctx := context.Background()

	require.NoError(t, env.db.SaveLastSyncTimestamp(ctx, t0.UnixMilli()))
	require.NoError(t, env.db.Insert(ctx, recipe("r1", "Soup", 30, t0.Add(30*time.Minute))))
	env.server.put(recipe("r1", "Stew", 90, t0.Add(40*time.Minute)))
	require.NoError(t, env.svc.FullSync(ctx))

	// Новый экземпляр поверх той же базы видит открытый конфликт
	restarted := newTestEnvWithDB(t, env.db, t0.Add(2*time.Hour))
	conflicts := restarted.svc.Conflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, "recipe_r1", conflicts[0].ID)
}

func TestFullSync_FetchFailure(t *testing.T) {
	env := newTestEnv(t, t0.Add(time.Hour))
	ctx := context.Background()

	require.NoError(t, env.db.SaveLastSyncTimestamp(ctx, t0.UnixMilli()))

	// Запись, застрявшая в syncing после прерванного прохода
	item := models.SyncItem{ID: "r1", EntityType: models.EntityRecipe, Action: models.ActionDelete, Timestamp: t0}
	require.NoError(t, env.pending.StorePending(ctx, item))
	require.NoError(t, env.pending.MarkSyncing(ctx, item))

	env.server.fetchErr = errUnavailable

	err := env.svc.FullSync(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errUnavailable))

	status := env.svc.CurrentStatus()
	assert.Equal(t, models.SyncStateError, status.State)
	assert.Contains(t, status.Message, "server unavailable")

	saved, err := env.db.GetLastSyncTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, t0.UnixMilli(), saved)

	records, err := env.pending.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.PendingStatusPending, records[0].Status)
}

func TestFullSync_SkipsPendingDeletes(t *testing.T) {
	env := newTestEnv(t, t0.Add(time.Hour))
	ctx := context.Background()

	env.server.put(recipe("r1", "Soup", 30, t0))
	env.server.put(recipe("r2", "Stew", 30, t0))

	env.online.Store(false)
	require.NoError(t, env.svc.EnqueueMutation(ctx, recipe("r1", "Soup", 30, t0), models.ActionDelete))
	require.NoError(t, env.pending.StorePending(ctx, models.SyncItem{
		ID: "r2", EntityType: models.EntityRecipe, Action: models.ActionDelete, Timestamp: t0,
	}))

	require.NoError(t, env.svc.FullSync(ctx))

	_, err := env.db.Get(ctx, models.EntityRecipe, "r1")
	assert.Error(t, err)
	_, err = env.db.Get(ctx, models.EntityRecipe, "r2")
	assert.Error(t, err)
}

func TestFullSync_InProgress(t *testing.T) {
	env := newTestEnv(t, t0)

	env.svc.fullSyncMu.Lock()
	defer env.svc.fullSyncMu.Unlock()

	err := env.svc.FullSync(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestStartFullSync(t *testing.T) {
	env := newTestEnv(t, t0.Add(time.Hour))
	ctx := context.Background()

	env.server.put(recipe("r1", "Soup", 30, t0))

	env.svc.StartFullSync(ctx)
	env.svc.Wait()

	assert.Equal(t, models.SyncStateCompleted, env.svc.CurrentStatus().State)
	_, err := env.db.Get(ctx, models.EntityRecipe, "r1")
	assert.NoError(t, err)
}
