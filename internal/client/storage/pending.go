package storage

import (
	"context"

	"github.com/iudanet/mealsync/internal/models"
)

//go:generate moq -out pendingstorage_mock.go . PendingStorage

// PendingStorage is the durable table of pending mutation records, keyed by models.RecordKey.
type PendingStorage interface {
	// SavePending stores or replaces a record
	SavePending(ctx context.Context, record *models.PendingMutationRecord) error

	// GetPending retrieves a record by key
	// Returns ErrPendingNotFound if record doesn't exist
	GetPending(ctx context.Context, key string) (*models.PendingMutationRecord, error)

	// UpdatePending atomically loads, modifies and stores a record
	// Returns ErrPendingNotFound if record doesn't exist
	UpdatePending(ctx context.Context, key string, fn func(record *models.PendingMutationRecord) error) error

	// ListPending returns all records ordered by creation time
	ListPending(ctx context.Context) ([]*models.PendingMutationRecord, error)

	// DeletePending removes a record, missing record is not an error
	DeletePending(ctx context.Context, key string) error

	// DeletePendingWhere removes every record matching the predicate and returns how many were removed
	DeletePendingWhere(ctx context.Context, match func(record *models.PendingMutationRecord) bool) (int, error)
}
