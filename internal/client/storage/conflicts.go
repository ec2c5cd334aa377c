package storage

import (
	"context"

	"github.com/iudanet/mealsync/internal/models"
)

//go:generate moq -out conflictstorage_mock.go . ConflictStorage

// ConflictStorage keeps open conflicts across restarts
type ConflictStorage interface {
	// ReplaceConflicts atomically replaces the stored set with conflicts
	ReplaceConflicts(ctx context.Context, conflicts []*models.ConflictResolution) error

	// ListConflicts returns every stored conflict
	ListConflicts(ctx context.Context) ([]*models.ConflictResolution, error)
}
