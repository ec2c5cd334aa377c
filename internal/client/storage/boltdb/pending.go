package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/iudanet/mealsync/internal/client/storage"
	"github.com/iudanet/mealsync/internal/models"
)

// SavePending stores or replaces a pending mutation record
func (s *Storage) SavePending(ctx context.Context, record *models.PendingMutationRecord) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal pending record: %w", err)
	}

	key := models.RecordKey(&record.Item)

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPending)
		if bucket == nil {
			return fmt.Errorf("pending bucket not found")
		}

		if err := bucket.Put([]byte(key), data); err != nil {
			return fmt.Errorf("failed to save pending record: %w", err)
		}

		return nil
	})
}

// GetPending retrieves a record by key
func (s *Storage) GetPending(ctx context.Context, key string) (*models.PendingMutationRecord, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var record *models.PendingMutationRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPending)
		if bucket == nil {
			return fmt.Errorf("pending bucket not found")
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return storage.ErrPendingNotFound
		}

		record = &models.PendingMutationRecord{}
		if err := json.Unmarshal(data, record); err != nil {
			return fmt.Errorf("failed to unmarshal pending record: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return record, nil
}

// UpdatePending atomically loads, modifies and stores a record in one transaction
func (s *Storage) UpdatePending(ctx context.Context, key string, fn func(record *models.PendingMutationRecord) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPending)
		if bucket == nil {
			return fmt.Errorf("pending bucket not found")
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return storage.ErrPendingNotFound
		}

		var record models.PendingMutationRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("failed to unmarshal pending record: %w", err)
		}

		if err := fn(&record); err != nil {
			return err
		}

		updated, err := json.Marshal(&record)
		if err != nil {
			return fmt.Errorf("failed to marshal pending record: %w", err)
		}

		// Ключ не меняется: fn не может менять id/type/action
		if err := bucket.Put([]byte(key), updated); err != nil {
			return fmt.Errorf("failed to save pending record: %w", err)
		}

		return nil
	})
}

// ListPending returns all records ordered by creation time
func (s *Storage) ListPending(ctx context.Context) ([]*models.PendingMutationRecord, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var records []*models.PendingMutationRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPending)
		if bucket == nil {
			return fmt.Errorf("pending bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			var record models.PendingMutationRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("failed to unmarshal pending record %s: %w", k, err)
			}
			records = append(records, &record)
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list pending records: %w", err)
	}

	// bbolt отдает ключи в лексикографическом порядке, нам нужен FIFO
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	return records, nil
}

// DeletePending removes a record
func (s *Storage) DeletePending(ctx context.Context, key string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPending)
		if bucket == nil {
			return fmt.Errorf("pending bucket not found")
		}

		if err := bucket.Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to delete pending record: %w", err)
		}

		return nil
	})
}

// DeletePendingWhere removes every record matching the predicate
func (s *Storage) DeletePendingWhere(ctx context.Context, match func(record *models.PendingMutationRecord) bool) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	removed := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPending)
		if bucket == nil {
			return fmt.Errorf("pending bucket not found")
		}

		// Нельзя удалять ключи во время ForEach, собираем их заранее
		var keys [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var record models.PendingMutationRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("failed to unmarshal pending record %s: %w", k, err)
			}
			if match(&record) {
				keys = append(keys, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range keys {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("failed to delete pending record: %w", err)
			}
		}
		removed = len(keys)

		return nil
	})

	if err != nil {
		return 0, err
	}

	return removed, nil
}
