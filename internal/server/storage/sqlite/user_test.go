package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/mealsync/internal/models"
	"github.com/iudanet/mealsync/internal/server/storage"
)

var userT0 = time.Date(2026, 5, 1, 12, 0, 0, 123456789, time.UTC)

func newUser(username string) *models.User {
	return &models.User{
		ID:          uuid.NewString(),
		Username:    username,
		AuthKeyHash: "hash-" + username,
		PublicSalt:  "salt-" + username,
		CreatedAt:   userT0,
	}
}

func TestUserStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	login := userT0.Add(time.Hour)
	withLogin := newUser("chef")
	withLogin.LastLogin = &login

	for _, user := range []*models.User{newUser("alice"), withLogin} {
		t.Run(user.Username, func(t *testing.T) {
			require.NoError(t, s.CreateUser(ctx, user))

			byID, err := s.GetUserByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, user, byID)

			byName, err := s.GetUserByUsername(ctx, user.Username)
			require.NoError(t, err)
			assert.Equal(t, user, byName)
		})
	}
}

func TestUserStorage_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.CreateUser(ctx, newUser("alice")))

	err := s.CreateUser(ctx, newUser("alice"))
	assert.ErrorIs(t, err, storage.ErrUserAlreadyExists)

	// username чувствителен к регистру
	assert.NoError(t, s.CreateUser(ctx, newUser("Alice")))
}

func TestUserStorage_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetUserByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	err = s.UpdateLastLogin(ctx, uuid.NewString(), userT0)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestUserStorage_UpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := newUser("alice")
	require.NoError(t, s.CreateUser(ctx, user))

	for _, login := range []time.Time{userT0.Add(time.Minute), userT0.Add(time.Hour)} {
		require.NoError(t, s.UpdateLastLogin(ctx, user.ID, login))

		got, err := s.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastLogin)
		assert.True(t, login.Equal(*got.LastLogin))
		assert.Equal(t, user.CreatedAt, got.CreatedAt)
	}
}

func TestUserStorage_DeleteCascadesEntities(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	_, err := s.UpsertEntity(ctx, userID, &models.Entity{
		ID:        "r1",
		Type:      models.EntityRecipe,
		Name:      "Soup",
		UpdatedAt: userT0,
	})
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	require.NoError(t, err)

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&n))
	assert.Zero(t, n)
}
