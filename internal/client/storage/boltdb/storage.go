// Package boltdb implements the client storage contracts on a single bbolt
// file. Values are JSON; entities live in one nested bucket per type.
package boltdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	bolterrors "go.etcd.io/bbolt/errors"

	"github.com/iudanet/mealsync/internal/models"
)

var (
	bucketEntities  = []byte("entities")
	bucketPending   = []byte("pending")
	bucketMetadata  = []byte("metadata")
	bucketConflicts = []byte("conflicts")
)

// lockTimeout ограничивает ожидание file lock, пока файл держит другой процесс (daemon)
const lockTimeout = 2 * time.Second

// ErrLocked returned by New when another process keeps the database open.
var ErrLocked = errors.New("database is used by another process")

// Storage implements storage.SessionStorage, storage.EntityStorage,
// storage.PendingStorage, storage.MetadataStorage and storage.ConflictStorage.
type Storage struct {
	db *bbolt.DB
}

// New opens or creates the database at dbPath and makes sure every bucket exists.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		if errors.Is(err, bolterrors.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dbPath)
		}
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}
	if err := s.db.Update(createBuckets); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize buckets: %w", err), db.Close())
	}

	return s, nil
}

// Close is safe to call more than once.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func createBuckets(tx *bbolt.Tx) error {
	for _, name := range [][]byte{bucketPending, bucketMetadata, bucketConflicts} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
	}

	entities, err := tx.CreateBucketIfNotExists(bucketEntities)
	if err != nil {
		return fmt.Errorf("create %s: %w", bucketEntities, err)
	}
	// Вложенный bucket на каждый тип сущности
	for _, et := range models.AllEntityTypes() {
		if _, err := entities.CreateBucketIfNotExists([]byte(et)); err != nil {
			return fmt.Errorf("create %s/%s: %w", bucketEntities, et, err)
		}
	}
	return nil
}
