package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/mealsync/internal/client/storage"
	"github.com/iudanet/mealsync/internal/models"
)

// entityBucket возвращает вложенный bucket для типа сущности
func entityBucket(tx *bbolt.Tx, entityType models.EntityType) (*bbolt.Bucket, error) {
	root := tx.Bucket(bucketEntities)
	if root == nil {
		return nil, fmt.Errorf("entities bucket not found")
	}
	bucket := root.Bucket([]byte(entityType))
	if bucket == nil {
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}
	return bucket, nil
}

// GetAll returns all entities of the given type
func (s *Storage) GetAll(ctx context.Context, entityType models.EntityType) ([]*models.Entity, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entities []*models.Entity

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := entityBucket(tx, entityType)
		if err != nil {
			return err
		}

		return bucket.ForEach(func(k, v []byte) error {
			var entity models.Entity
			if err := json.Unmarshal(v, &entity); err != nil {
				return fmt.Errorf("failed to unmarshal entity %s: %w", k, err)
			}
			entities = append(entities, &entity)
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get entities: %w", err)
	}

	return entities, nil
}

// Get retrieves one entity
func (s *Storage) Get(ctx context.Context, entityType models.EntityType, id string) (*models.Entity, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entity *models.Entity

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := entityBucket(tx, entityType)
		if err != nil {
			return err
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrEntityNotFound
		}

		entity = &models.Entity{}
		if err := json.Unmarshal(data, entity); err != nil {
			return fmt.Errorf("failed to unmarshal entity: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return entity, nil
}

// Insert stores a new entity
func (s *Storage) Insert(ctx context.Context, entity *models.Entity) error {
	return s.put(entity, func(bucket *bbolt.Bucket) error {
		if bucket.Get([]byte(entity.ID)) != nil {
			return storage.ErrEntityExists
		}
		return nil
	})
}

// Update replaces an existing entity
func (s *Storage) Update(ctx context.Context, entity *models.Entity) error {
	return s.put(entity, func(bucket *bbolt.Bucket) error {
		if bucket.Get([]byte(entity.ID)) == nil {
			return storage.ErrEntityNotFound
		}
		return nil
	})
}

// Delete removes an entity
func (s *Storage) Delete(ctx context.Context, entityType models.EntityType, id string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := entityBucket(tx, entityType)
		if err != nil {
			return err
		}
		if err := bucket.Delete([]byte(id)); err != nil {
			return fmt.Errorf("failed to delete entity: %w", err)
		}
		return nil
	})
}

// put сериализует сущность и сохраняет её после проверки check
func (s *Storage) put(entity *models.Entity, check func(bucket *bbolt.Bucket) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := entityBucket(tx, entity.Type)
		if err != nil {
			return err
		}

		if err := check(bucket); err != nil {
			return err
		}

		if err := bucket.Put([]byte(entity.ID), data); err != nil {
			return fmt.Errorf("failed to save entity: %w", err)
		}

		return nil
	})
}
