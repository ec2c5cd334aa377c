// Package pending implements the durable, restart-surviving queue of
// mutations that the server has not confirmed yet.
package pending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/mealsync/internal/client/storage"
	"github.com/iudanet/mealsync/internal/clock"
	"github.com/iudanet/mealsync/internal/models"
)

// Settings persisted switch for offline mode
type Settings interface {
	SetOfflineModeEnabled(ctx context.Context, enabled bool) error
	IsOfflineModeEnabled(ctx context.Context) (bool, error)
}

// Counts количество записей по статусам для бейджей UI
type Counts struct {
	Pending int // ожидают повтора (pending + syncing)
	Failed  int // исчерпали попытки
}

// Store owns the pending mutation table.
// Records move Pending -> Syncing -> {deleted | Pending | Failed}.
type Store struct {
	storage  storage.PendingStorage
	settings Settings
	clock    clock.Clock
	logger   *slog.Logger

	mu      sync.RWMutex
	offline bool
}

// NewStore creates a pending mutation store and loads the persisted offline-mode flag
func NewStore(ctx context.Context, st storage.PendingStorage, settings Settings, clk clock.Clock, logger *slog.Logger) (*Store, error) {
	offline, err := settings.IsOfflineModeEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load offline mode flag: %w", err)
	}

	if clk == nil {
		clk = clock.System{}
	}

	return &Store{
		storage:  st,
		settings: settings,
		clock:    clk,
		logger:   logger,
		offline:  offline,
	}, nil
}

// SetOfflineModeEnabled toggles durable storage of failed mutations
func (s *Store) SetOfflineModeEnabled(ctx context.Context, enabled bool) error {
	if err := s.settings.SetOfflineModeEnabled(ctx, enabled); err != nil {
		return fmt.Errorf("failed to save offline mode flag: %w", err)
	}

	s.mu.Lock()
	s.offline = enabled
	s.mu.Unlock()

	s.logger.Info("Offline mode changed", "enabled", enabled)
	return nil
}

// IsOfflineModeEnabled reports the current switch value
func (s *Store) IsOfflineModeEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.offline
}

// StorePending persists the item with status Pending.
// При выключенном offline mode мутация просто отбрасывается.
func (s *Store) StorePending(ctx context.Context, item models.SyncItem) error {
	if !s.IsOfflineModeEnabled() {
		s.logger.Warn("Offline mode disabled, dropping failed mutation",
			"entity_id", item.ID,
			"entity_type", item.EntityType,
			"action", item.Action)
		return nil
	}

	now := s.clock.Now()
	record := &models.PendingMutationRecord{
		Item:      item,
		Status:    models.PendingStatusPending,
		CreatedAt: now,
	}

	// Если запись уже есть - сохраняем время создания (для CleanupOld и FIFO)
	// и историю попыток: новая версия не сбрасывает счетчик и статус Failed
	existing, err := s.storage.GetPending(ctx, models.RecordKey(&item))
	switch {
	case err == nil:
		record.CreatedAt = existing.CreatedAt
		record.LastAttemptAt = existing.LastAttemptAt
		record.Item.RetryCount = max(item.RetryCount, existing.Item.RetryCount)
		if existing.Status == models.PendingStatusFailed || record.Item.RetryCount >= models.MaxRetries {
			record.Status = models.PendingStatusFailed
		}
	case !errors.Is(err, storage.ErrPendingNotFound):
		return fmt.Errorf("failed to check existing pending record: %w", err)
	}

	if err := s.storage.SavePending(ctx, record); err != nil {
		return fmt.Errorf("failed to store pending mutation: %w", err)
	}

	s.logger.Debug("Stored pending mutation",
		"entity_id", item.ID,
		"entity_type", item.EntityType,
		"action", item.Action,
		"retry_count", record.Item.RetryCount)

	return nil
}

// ListPending returns every record, including Failed ones, as SyncItems
func (s *Store) ListPending(ctx context.Context) ([]models.SyncItem, error) {
	records, err := s.storage.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending mutations: %w", err)
	}

	items := make([]models.SyncItem, 0, len(records))
	for _, r := range records {
		items = append(items, r.ToSyncItem())
	}
	return items, nil
}

// ListRetryable returns records eligible for automatic re-drain (status Pending)
func (s *Store) ListRetryable(ctx context.Context) ([]models.SyncItem, error) {
	records, err := s.storage.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending mutations: %w", err)
	}

	var items []models.SyncItem
	for _, r := range records {
		if r.Status == models.PendingStatusPending {
			items = append(items, r.ToSyncItem())
		}
	}
	return items, nil
}

// Records returns raw records for status views
func (s *Store) Records(ctx context.Context) ([]*models.PendingMutationRecord, error) {
	records, err := s.storage.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending mutations: %w", err)
	}
	return records, nil
}

// MarkSyncing flags a record as in flight before it is retried
func (s *Store) MarkSyncing(ctx context.Context, item models.SyncItem) error {
	err := s.storage.UpdatePending(ctx, models.RecordKey(&item), func(r *models.PendingMutationRecord) error {
		if r.Status == models.PendingStatusFailed {
			return fmt.Errorf("record %s already failed", models.RecordKey(&item))
		}
		r.Status = models.PendingStatusSyncing
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark mutation syncing: %w", err)
	}
	return nil
}

// MarkSynced deletes the matching record. Idempotent.
func (s *Store) MarkSynced(ctx context.Context, item models.SyncItem) error {
	if err := s.storage.DeletePending(ctx, models.RecordKey(&item)); err != nil {
		return fmt.Errorf("failed to remove synced mutation: %w", err)
	}
	return nil
}

// IncrementRetry records a failed attempt. At MaxRetries the record becomes Failed
// and is never retried automatically again.
// Возвращает обновленный счетчик попыток.
func (s *Store) IncrementRetry(ctx context.Context, item models.SyncItem) (int, error) {
	var retries int

	err := s.storage.UpdatePending(ctx, models.RecordKey(&item), func(r *models.PendingMutationRecord) error {
		if r.Status == models.PendingStatusFailed {
			retries = r.Item.RetryCount
			return nil
		}

		r.Item.RetryCount++
		r.LastAttemptAt = s.clock.Now()
		if r.Item.RetryCount >= models.MaxRetries {
			r.Status = models.PendingStatusFailed
		} else {
			r.Status = models.PendingStatusPending
		}
		retries = r.Item.RetryCount
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment retry count: %w", err)
	}

	if retries >= models.MaxRetries {
		s.logger.Warn("Mutation exhausted retries",
			"entity_id", item.ID,
			"entity_type", item.EntityType,
			"action", item.Action,
			"retry_count", retries)
	}

	return retries, nil
}

// HandleSyncFailure resets every Syncing record of the type back to Pending
func (s *Store) HandleSyncFailure(ctx context.Context, entityType models.EntityType) error {
	records, err := s.storage.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending mutations: %w", err)
	}

	reset := 0
	for _, r := range records {
		if r.Item.EntityType != entityType || r.Status != models.PendingStatusSyncing {
			continue
		}

		err := s.storage.UpdatePending(ctx, models.RecordKey(&r.Item), func(rec *models.PendingMutationRecord) error {
			if rec.Status == models.PendingStatusSyncing {
				rec.Status = models.PendingStatusPending
			}
			return nil
		})
		if err != nil && !errors.Is(err, storage.ErrPendingNotFound) {
			return fmt.Errorf("failed to reset syncing mutation: %w", err)
		}
		reset++
	}

	if reset > 0 {
		s.logger.Info("Reset in-flight mutations after sync failure",
			"entity_type", entityType,
			"count", reset)
	}

	return nil
}

// CleanupOld deletes records older than PendingRetention regardless of status
func (s *Store) CleanupOld(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-models.PendingRetention)

	removed, err := s.storage.DeletePendingWhere(ctx, func(r *models.PendingMutationRecord) bool {
		return r.CreatedAt.Before(cutoff)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old mutations: %w", err)
	}

	if removed > 0 {
		s.logger.Info("Removed stale pending mutations", "count", removed)
	}

	return removed, nil
}

// ClearFailed removes terminal records (operator action)
func (s *Store) ClearFailed(ctx context.Context) (int, error) {
	removed, err := s.storage.DeletePendingWhere(ctx, func(r *models.PendingMutationRecord) bool {
		return r.Status == models.PendingStatusFailed
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear failed mutations: %w", err)
	}
	return removed, nil
}

// Counts returns pending and failed record counts
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	records, err := s.storage.ListPending(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count pending mutations: %w", err)
	}

	var c Counts
	for _, r := range records {
		if r.Status == models.PendingStatusFailed {
			c.Failed++
		} else {
			c.Pending++
		}
	}
	return c, nil
}

// CountPending delivers the number of stored records to callback asynchronously
func (s *Store) CountPending(ctx context.Context, callback func(count int, err error)) {
	go func() {
		records, err := s.storage.ListPending(ctx)
		if err != nil {
			callback(0, fmt.Errorf("failed to count pending mutations: %w", err))
			return
		}
		callback(len(records), nil)
	}()
}
