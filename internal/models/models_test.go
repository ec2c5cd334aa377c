package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityType_Valid(t *testing.T) {
	for _, et := range AllEntityTypes() {
		assert.True(t, et.Valid(), et)
	}
	assert.False(t, EntityType("cookbook").Valid())
	assert.False(t, EntityType("").Valid())
}

func TestEntity_IsNewerThan(t *testing.T) {
	now := time.Now()
	a := &Entity{UpdatedAt: now}
	b := &Entity{UpdatedAt: now.Add(-time.Minute)}

	assert.True(t, a.IsNewerThan(b))
	assert.False(t, b.IsNewerThan(a))
	assert.False(t, a.IsNewerThan(a))
}

func TestEntity_Clone(t *testing.T) {
	orig := &Entity{
		ID:         "r1",
		Type:       EntityRecipe,
		Name:       "Borscht",
		Items:      []string{"beet", "cabbage"},
		Steps:      []string{"boil"},
		Attributes: map[string]string{"cuisine": "ukrainian"},
	}

	clone := orig.Clone()
	require.Equal(t, orig, clone)

	// Изменения копии не должны затрагивать оригинал
	clone.Items[0] = "potato"
	clone.Steps = append(clone.Steps, "serve")
	clone.Attributes["cuisine"] = "russian"

	assert.Equal(t, "beet", orig.Items[0])
	assert.Len(t, orig.Steps, 1)
	assert.Equal(t, "ukrainian", orig.Attributes["cuisine"])

	var nilEntity *Entity
	assert.Nil(t, nilEntity.Clone())
}

func TestKeys(t *testing.T) {
	item := &SyncItem{ID: "42", EntityType: EntityShoppingList, Action: ActionUpdate}

	assert.Equal(t, "shopping_list/42", item.Key())
	assert.Equal(t, "shopping_list/42/update", RecordKey(item))
	assert.Equal(t, "recipe_42", ConflictID(EntityRecipe, "42"))
}

func TestPayload_Encode_Decode(t *testing.T) {
	e := &Entity{
		ID:        "r1",
		Type:      EntityRecipe,
		Name:      "Pancakes",
		Duration:  20,
		Items:     []string{"flour", "milk", "eggs"},
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := EncodePayload(e)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"v":1`)

	decoded, err := DecodePayload(data)
	require.NoError(t, err)
	assert.Equal(t, e, decoded)
}

func TestPayload_Decode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "future version", data: `{"v":2,"entity":{"id":"x"}}`, wantErr: ErrUnsupportedPayloadVersion},
		{name: "missing version", data: `{"entity":{"id":"x"}}`, wantErr: ErrUnsupportedPayloadVersion},
		{name: "missing entity", data: `{"v":1}`},
		{name: "garbage", data: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePayload([]byte(tt.data))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	_, err := EncodePayload(nil)
	assert.Error(t, err)
}

func TestPendingMutationRecord_ToSyncItem(t *testing.T) {
	rec := &PendingMutationRecord{
		Item:   SyncItem{ID: "1", EntityType: EntityRecipe, Action: ActionCreate, Payload: []byte("x"), RetryCount: 3},
		Status: PendingStatusPending,
	}

	item := rec.ToSyncItem()
	assert.Equal(t, 3, item.RetryCount)

	item.Payload[0] = 'y'
	assert.Equal(t, byte('x'), rec.Item.Payload[0])
}
