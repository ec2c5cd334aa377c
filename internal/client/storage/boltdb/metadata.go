package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/iudanet/mealsync/internal/client/storage"
)

const (
	keyLastSyncTimestamp = "last_sync_timestamp"
	keyDeviceID          = "device_id"
	keySyncEnabled       = "sync_enabled"
	keySyncInterval      = "sync_interval"
	keyOfflineMode       = "offline_mode"
)

// SaveLastSyncTimestamp saves the timestamp of the last successful sync
func (s *Storage) SaveLastSyncTimestamp(ctx context.Context, timestamp int64) error {
	return s.putMeta(keyLastSyncTimestamp, encodeInt64(timestamp))
}

// GetLastSyncTimestamp retrieves the timestamp of the last successful sync
// Returns 0 if no sync has been performed yet
func (s *Storage) GetLastSyncTimestamp(ctx context.Context) (int64, error) {
	value, err := s.getMeta(keyLastSyncTimestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to get last sync timestamp: %w", err)
	}
	if value == nil {
		// Первая синхронизация
		return 0, nil
	}
	return decodeInt64(value), nil
}

// GetDeviceID returns the installation id, generating it once
func (s *Storage) GetDeviceID(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", storage.ErrStorageClosed
	}

	var deviceID string

	// Чтение и генерация в одной транзакции, чтобы id не сгенерировался дважды
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if value := bucket.Get([]byte(keyDeviceID)); value != nil {
			deviceID = string(value)
			return nil
		}

		deviceID = uuid.New().String()
		if err := bucket.Put([]byte(keyDeviceID), []byte(deviceID)); err != nil {
			return fmt.Errorf("failed to save device id: %w", err)
		}

		return nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to get device id: %w", err)
	}

	return deviceID, nil
}

// SetSyncEnabled toggles automatic draining
func (s *Storage) SetSyncEnabled(ctx context.Context, enabled bool) error {
	return s.putMeta(keySyncEnabled, encodeBool(enabled))
}

// IsSyncEnabled returns true if the flag was never saved
func (s *Storage) IsSyncEnabled(ctx context.Context) (bool, error) {
	return s.getBool(keySyncEnabled, true)
}

// SetSyncInterval saves the periodic trigger cadence
func (s *Storage) SetSyncInterval(ctx context.Context, interval time.Duration) error {
	return s.putMeta(keySyncInterval, encodeInt64(int64(interval)))
}

// GetSyncInterval returns 0 if the interval was never saved
func (s *Storage) GetSyncInterval(ctx context.Context) (time.Duration, error) {
	value, err := s.getMeta(keySyncInterval)
	if err != nil {
		return 0, fmt.Errorf("failed to get sync interval: %w", err)
	}
	if value == nil {
		return 0, nil
	}
	return time.Duration(decodeInt64(value)), nil
}

// SetOfflineModeEnabled toggles durable storage of failed mutations
func (s *Storage) SetOfflineModeEnabled(ctx context.Context, enabled bool) error {
	return s.putMeta(keyOfflineMode, encodeBool(enabled))
}

// IsOfflineModeEnabled returns true if the flag was never saved
func (s *Storage) IsOfflineModeEnabled(ctx context.Context) (bool, error) {
	return s.getBool(keyOfflineMode, true)
}

func (s *Storage) putMeta(key string, value []byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if err := bucket.Put([]byte(key), value); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}

		return nil
	})
}

// getMeta возвращает nil, если ключ не найден
func (s *Storage) getMeta(key string) ([]byte, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var value []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		// Значение валидно только внутри транзакции, копируем
		if v := bucket.Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})

	return value, err
}

func (s *Storage) getBool(key string, def bool) (bool, error) {
	value, err := s.getMeta(key)
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if len(value) == 0 {
		return def, nil
	}
	return value[0] == 1, nil
}

func encodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeInt64(buf []byte) int64 {
	return int64(binary.BigEndian.Uint64(buf))
}

func encodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}
