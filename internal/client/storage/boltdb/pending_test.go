package boltdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/mealsync/internal/client/storage"
	"github.com/iudanet/mealsync/internal/models"
)

func newRecord(id string, action models.Action, createdAt time.Time) *models.PendingMutationRecord {
	return &models.PendingMutationRecord{
		Item: models.SyncItem{
			ID:             id,
			EntityType:     models.EntityRecipe,
			Action:         action,
			Timestamp:      createdAt,
			OriginDeviceID: "device-1",
			Payload:        []byte(`{"v":1}`),
		},
		Status:    models.PendingStatusPending,
		CreatedAt: createdAt,
	}
}

func TestPending_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	record := newRecord("r1", models.ActionUpdate, now)
	key := models.RecordKey(&record.Item)

	_, err := store.GetPending(ctx, key)
	assert.ErrorIs(t, err, storage.ErrPendingNotFound)

	require.NoError(t, store.SavePending(ctx, record))

	got, err := store.GetPending(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, record, got)

	require.NoError(t, store.DeletePending(ctx, key))
	_, err = store.GetPending(ctx, key)
	assert.ErrorIs(t, err, storage.ErrPendingNotFound)

	// Повторное удаление - no-op
	assert.NoError(t, store.DeletePending(ctx, key))
}

func TestPending_ListOrderedByCreation(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	// Ключи в обратном лексикографическом порядке относительно времени создания
	require.NoError(t, store.SavePending(ctx, newRecord("c", models.ActionCreate, base)))
	require.NoError(t, store.SavePending(ctx, newRecord("b", models.ActionCreate, base.Add(time.Minute))))
	require.NoError(t, store.SavePending(ctx, newRecord("a", models.ActionCreate, base.Add(2*time.Minute))))

	records, err := store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].Item.ID)
	assert.Equal(t, "b", records[1].Item.ID)
	assert.Equal(t, "a", records[2].Item.ID)
}

func TestPending_UpdatePending(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	record := newRecord("r1", models.ActionDelete, now)
	key := models.RecordKey(&record.Item)

	err := store.UpdatePending(ctx, key, func(r *models.PendingMutationRecord) error { return nil })
	assert.ErrorIs(t, err, storage.ErrPendingNotFound)

	require.NoError(t, store.SavePending(ctx, record))

	err = store.UpdatePending(ctx, key, func(r *models.PendingMutationRecord) error {
		r.Item.RetryCount++
		r.Status = models.PendingStatusSyncing
		return nil
	})
	require.NoError(t, err)

	got, err := store.GetPending(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Item.RetryCount)
	assert.Equal(t, models.PendingStatusSyncing, got.Status)

	// Ошибка из fn откатывает транзакцию
	boom := errors.New("boom")
	err = store.UpdatePending(ctx, key, func(r *models.PendingMutationRecord) error {
		r.Item.RetryCount = 100
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err = store.GetPending(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Item.RetryCount)
}

func TestPending_DeletePendingWhere(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	failed := newRecord("r1", models.ActionCreate, now)
	failed.Status = models.PendingStatusFailed
	require.NoError(t, store.SavePending(ctx, failed))
	require.NoError(t, store.SavePending(ctx, newRecord("r2", models.ActionCreate, now)))
	require.NoError(t, store.SavePending(ctx, newRecord("r3", models.ActionUpdate, now)))

	removed, err := store.DeletePendingWhere(ctx, func(r *models.PendingMutationRecord) bool {
		return r.Status == models.PendingStatusFailed
	})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	records, err := store.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	removed, err = store.DeletePendingWhere(ctx, func(r *models.PendingMutationRecord) bool { return false })
	require.NoError(t, err)
	assert.Zero(t, removed)
}
