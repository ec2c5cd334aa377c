// Package storage declares the persistence contracts of the reference sync
// server. The sqlite subpackage is the only implementation.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/iudanet/mealsync/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrEntityNotFound    = errors.New("entity not found")
)

// UserStorage keeps registered accounts.
type UserStorage interface {
	// CreateUser fails with ErrUserAlreadyExists when the username is taken.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error
}

// EntityStorage persists each user's entities.
// The server is a plain replica: it stores whatever version the client sends.
type EntityStorage interface {
	// ListEntities returns an empty slice when the user has nothing of that type.
	ListEntities(ctx context.Context, userID string, entityType models.EntityType) ([]*models.Entity, error)
	GetEntity(ctx context.Context, userID string, entityType models.EntityType, id string) (*models.Entity, error)

	// UpsertEntity reports whether the entity was created rather than replaced.
	UpsertEntity(ctx context.Context, userID string, entity *models.Entity) (bool, error)

	// DeleteEntity returns ErrEntityNotFound for unknown ids; the HTTP layer
	// treats that as success.
	DeleteEntity(ctx context.Context, userID string, entityType models.EntityType, id string) error
}
