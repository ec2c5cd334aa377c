package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/mealsync/internal/client/storage"
	"github.com/iudanet/mealsync/internal/models"
)

// HasConflict reports whether both sides changed after lastSync (unix millis)
func HasConflict(local, server *models.Entity, lastSync int64) bool {
	return local.UpdatedAt.UnixMilli() > lastSync && server.UpdatedAt.UnixMilli() > lastSync
}

// mergeResult счетчики одного прохода слияния
type mergeResult struct {
	Inserted  int
	Updated   int
	Skipped   int
	Conflicts int
}

// mergeType сливает серверные сущности одного типа с локальным хранилищем.
// skip содержит ключи с неотправленным удалением: такие сущности не восстанавливаются.
func (s *Service) mergeType(ctx context.Context, entityType models.EntityType, serverEntities []*models.Entity, lastSync int64, skip map[string]bool) (mergeResult, error) {
	var res mergeResult

	for _, server := range serverEntities {
		if server.Type == "" {
			server.Type = entityType
		}
		if skip[models.EntityKey(server.Type, server.ID)] {
			res.Skipped++
			continue
		}

		local, err := s.entities.Get(ctx, server.Type, server.ID)
		if err != nil {
			if !errors.Is(err, storage.ErrEntityNotFound) {
				return res, fmt.Errorf("failed to get local %s %s: %w", server.Type, server.ID, err)
			}

			// Новая для нас сущность: сервер авторитетен
			if err := s.entities.Insert(ctx, server); err != nil {
				return res, fmt.Errorf("failed to insert %s %s: %w", server.Type, server.ID, err)
			}
			res.Inserted++
			continue
		}

		if local.UpdatedAt.Equal(server.UpdatedAt) {
			res.Skipped++
			continue
		}

		// Открытый конфликт продолжает жить, пока его не разрешат
		_, openErr := s.conflicts.Get(models.ConflictID(server.Type, server.ID))
		if HasConflict(local, server, lastSync) || openErr == nil {
			c := s.conflicts.AddConflict(local, server)
			s.logger.Info("Conflict detected",
				"entity_type", server.Type,
				"entity_id", server.ID,
				"auto_resolved", c.Resolved)
			res.Conflicts++
			continue
		}

		// Last-Write-Wins
		if !server.IsNewerThan(local) {
			res.Skipped++
			continue
		}

		if err := s.entities.Update(ctx, server); err != nil {
			return res, fmt.Errorf("failed to update %s %s: %w", server.Type, server.ID, err)
		}
		res.Updated++
	}

	return res, nil
}

// applyResolved записывает разрешенные версии локально и отправляет их на сервер,
// если победила не серверная версия. Такая версия получает текущее время UpdatedAt.
// Затем очищает разрешенные конфликты.
func (s *Service) applyResolved(ctx context.Context) (int, error) {
	applied := 0

	for _, c := range s.conflicts.ListConflicts() {
		if !c.Resolved || c.ResolvedVersion == nil {
			continue
		}

		v := c.ResolvedVersion
		if c.Strategy != models.StrategyUseServer {
			// Отправляемая версия должна быть новее всех копий на других устройствах
			v = v.Clone()
			v.UpdatedAt = s.clock.Now().UTC()
		}
		if err := s.entities.Update(ctx, v); err != nil {
			if !errors.Is(err, storage.ErrEntityNotFound) {
				return applied, fmt.Errorf("failed to apply resolution %s: %w", c.ID, err)
			}
			if err := s.entities.Insert(ctx, v); err != nil {
				return applied, fmt.Errorf("failed to apply resolution %s: %w", c.ID, err)
			}
		}

		if c.Strategy != models.StrategyUseServer {
			if err := s.EnqueueMutation(ctx, v, models.ActionUpdate); err != nil {
				return applied, fmt.Errorf("failed to push resolution %s: %w", c.ID, err)
			}
		}
		applied++
	}

	s.conflicts.ClearResolved()

	return applied, s.persistConflicts(ctx)
}

func (s *Service) persistConflicts(ctx context.Context) error {
	if s.conflictStore == nil {
		return nil
	}
	if err := s.conflictStore.ReplaceConflicts(ctx, s.conflicts.ListConflicts()); err != nil {
		return fmt.Errorf("failed to persist conflicts: %w", err)
	}
	return nil
}
