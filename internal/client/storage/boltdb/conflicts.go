package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/mealsync/internal/client/storage"
	"github.com/iudanet/mealsync/internal/models"
)

// ReplaceConflicts пересоздает bucket конфликтов в одной транзакции
func (s *Storage) ReplaceConflicts(ctx context.Context, conflicts []*models.ConflictResolution) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketConflicts); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("failed to drop conflicts bucket: %w", err)
		}

		bucket, err := tx.CreateBucket(bucketConflicts)
		if err != nil {
			return fmt.Errorf("failed to create conflicts bucket: %w", err)
		}

		for _, c := range conflicts {
			data, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("failed to marshal conflict: %w", err)
			}
			if err := bucket.Put([]byte(c.ID), data); err != nil {
				return fmt.Errorf("failed to save conflict: %w", err)
			}
		}

		return nil
	})
}

// ListConflicts returns every stored conflict ordered by id
func (s *Storage) ListConflicts(ctx context.Context) ([]*models.ConflictResolution, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var conflicts []*models.ConflictResolution

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketConflicts)
		if bucket == nil {
			return fmt.Errorf("conflicts bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			var c models.ConflictResolution
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("failed to unmarshal conflict %s: %w", k, err)
			}
			conflicts = append(conflicts, &c)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return conflicts, nil
}
