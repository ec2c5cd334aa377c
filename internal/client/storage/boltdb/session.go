package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/mealsync/internal/client/storage"
)

// Сессия живет в metadata рядом с device id, отдельный bucket не нужен
const keySession = "session"

// SaveSession replaces the stored session
func (s *Storage) SaveSession(ctx context.Context, session *storage.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.putMeta(keySession, data)
}

// LoadSession returns storage.ErrNoSession if nobody is logged in
func (s *Storage) LoadSession(ctx context.Context) (*storage.Session, error) {
	value, err := s.getMeta(keySession)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if value == nil {
		return nil, storage.ErrNoSession
	}

	var session storage.Session
	if err := json.Unmarshal(value, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// ClearSession removes the stored session if there is one
func (s *Storage) ClearSession(ctx context.Context) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}
		return bucket.Delete([]byte(keySession))
	})
}
