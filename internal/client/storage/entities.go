package storage

import (
	"context"

	"github.com/iudanet/mealsync/internal/models"
)

//go:generate moq -out entitystorage_mock.go . EntityStorage

// EntityStorage is the authoritative local copy of domain entities.
// The sync engine reads and writes it only while merging a full sync.
type EntityStorage interface {
	// GetAll returns all entities of the given type
	GetAll(ctx context.Context, entityType models.EntityType) ([]*models.Entity, error)

	// Get retrieves one entity
	// Returns ErrEntityNotFound if entity doesn't exist
	Get(ctx context.Context, entityType models.EntityType, id string) (*models.Entity, error)

	// Insert stores a new entity
	// Returns ErrEntityExists if entity with the same type and id is present
	Insert(ctx context.Context, entity *models.Entity) error

	// Update replaces an existing entity
	// Returns ErrEntityNotFound if entity doesn't exist
	Update(ctx context.Context, entity *models.Entity) error

	// Delete removes an entity, missing entity is not an error
	Delete(ctx context.Context, entityType models.EntityType, id string) error
}
