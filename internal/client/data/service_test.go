package data

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/mealsync/internal/client/storage"
	"github.com/iudanet/mealsync/internal/client/storage/boltdb"
	"github.com/iudanet/mealsync/internal/clock"
	"github.com/iudanet/mealsync/internal/models"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func setupService(t *testing.T) (*Service, *boltdb.Storage, *QueueMock, *clock.Manual) {
	t.Helper()

	db, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	queue := &QueueMock{
		EnqueueMutationFunc: func(ctx context.Context, entity *models.Entity, action models.Action) error {
			return nil
		},
	}
	clk := clock.NewManual(t0)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewService(db, queue, clk, logger), db, queue, clk
}

func TestService_Add(t *testing.T) {
	ctx := context.Background()
	svc, db, queue, _ := setupService(t)

	added, err := svc.Add(ctx, &models.Entity{
		Type:     models.EntityRecipe,
		Name:     "Pancakes",
		Duration: 20,
		Items:    []string{"flour", "milk"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, added.ID)
	assert.Equal(t, t0, added.UpdatedAt)

	stored, err := db.Get(ctx, models.EntityRecipe, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", stored.Name)

	calls := queue.EnqueueMutationCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, models.ActionCreate, calls[0].Action)
	assert.Equal(t, added, calls[0].Entity)

	// Заданный id сохраняется
	withID, err := svc.Add(ctx, &models.Entity{ID: "list-1", Type: models.EntityShoppingList, Name: "Groceries"})
	require.NoError(t, err)
	assert.Equal(t, "list-1", withID.ID)

	_, err = svc.Add(ctx, &models.Entity{ID: "list-1", Type: models.EntityShoppingList, Name: "Again"})
	assert.ErrorIs(t, err, storage.ErrEntityExists)
	assert.Len(t, queue.EnqueueMutationCalls(), 2)
}

func TestService_AddInvalid(t *testing.T) {
	ctx := context.Background()
	svc, db, queue, _ := setupService(t)

	tests := []struct {
		name   string
		entity *models.Entity
		want   string
	}{
		{name: "empty name", entity: &models.Entity{Type: models.EntityRecipe}, want: "name cannot be empty"},
		{name: "unknown type", entity: &models.Entity{Type: "dessert", Name: "Cake"}, want: "unknown entity type"},
		{name: "bad id", entity: &models.Entity{ID: "a/b", Type: models.EntityRecipe, Name: "Cake"}, want: "entity id must be"},
		{name: "negative duration", entity: &models.Entity{Type: models.EntityRecipe, Name: "Cake", Duration: -1}, want: "duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, tt.entity)
			assert.ErrorContains(t, err, tt.want)
		})
	}

	list, err := db.GetAll(ctx, models.EntityRecipe)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, queue.EnqueueMutationCalls())
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, db, queue, clk := setupService(t)

	added, err := svc.Add(ctx, &models.Entity{Type: models.EntityRecipe, Name: "Soup"})
	require.NoError(t, err)

	clk.Advance(time.Minute)
	added.Name = "Tomato soup"
	updated, err := svc.Update(ctx, added)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Minute), updated.UpdatedAt)

	stored, err := db.Get(ctx, models.EntityRecipe, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tomato soup", stored.Name)

	calls := queue.EnqueueMutationCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, models.ActionUpdate, calls[1].Action)

	_, err = svc.Update(ctx, &models.Entity{ID: "missing", Type: models.EntityRecipe, Name: "X"})
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)
	assert.Len(t, queue.EnqueueMutationCalls(), 2)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, db, queue, _ := setupService(t)

	added, err := svc.Add(ctx, &models.Entity{Type: models.EntityMealPlan, Name: "Week"})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, models.EntityMealPlan, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Week", deleted.Name)

	_, err = db.Get(ctx, models.EntityMealPlan, added.ID)
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)

	calls := queue.EnqueueMutationCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, models.ActionDelete, calls[1].Action)
	assert.Equal(t, added.ID, calls[1].Entity.ID)

	_, err = svc.Delete(ctx, models.EntityMealPlan, added.ID)
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)
}

func TestService_QueueError(t *testing.T) {
	ctx := context.Background()
	svc, db, queue, _ := setupService(t)

	queueErr := errors.New("queue closed")
	queue.EnqueueMutationFunc = func(ctx context.Context, entity *models.Entity, action models.Action) error {
		return queueErr
	}

	added, err := svc.Add(ctx, &models.Entity{Type: models.EntityRecipe, Name: "Soup"})
	assert.ErrorIs(t, err, queueErr)
	require.NotNil(t, added)

	// Локальная копия сохраняется даже без очереди
	_, err = db.Get(ctx, models.EntityRecipe, added.ID)
	assert.NoError(t, err)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := setupService(t)

	for _, name := range []string{"borscht", "Apple pie", "Carbonara"} {
		_, err := svc.Add(ctx, &models.Entity{Type: models.EntityRecipe, Name: name})
		require.NoError(t, err)
	}
	_, err := svc.Add(ctx, &models.Entity{Type: models.EntityShoppingList, Name: "Groceries"})
	require.NoError(t, err)

	list, err := svc.List(ctx, models.EntityRecipe)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Apple pie", list[0].Name)
	assert.Equal(t, "borscht", list[1].Name)
	assert.Equal(t, "Carbonara", list[2].Name)

	empty, err := svc.List(ctx, models.EntityUserProfile)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
