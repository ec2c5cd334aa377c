// Package data is the local write path for meal entities.
// Every change is validated, stored locally and queued for the server.
package data

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/iudanet/mealsync/internal/client/storage"
	"github.com/iudanet/mealsync/internal/clock"
	"github.com/iudanet/mealsync/internal/models"
	"github.com/iudanet/mealsync/internal/validation"
)

//go:generate moq -out queue_mock.go . Queue

// Queue принимает мутации для отправки на сервер (sync.Service)
type Queue interface {
	EnqueueMutation(ctx context.Context, entity *models.Entity, action models.Action) error
}

// Service handles client-side entity operations
type Service struct {
	entities storage.EntityStorage
	queue    Queue
	clock    clock.Clock
	logger   *slog.Logger
}

// NewService creates a new data service
func NewService(entities storage.EntityStorage, queue Queue, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		entities: entities,
		queue:    queue,
		clock:    clk,
		logger:   logger,
	}
}

// Add stores a new entity and queues its creation.
// An empty id is generated, UpdatedAt is set to now.
func (s *Service) Add(ctx context.Context, e *models.Entity) (*models.Entity, error) {
	e = e.Clone()
	// Генерируем ID если не задан
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.UpdatedAt = s.clock.Now().UTC()

	if err := validation.ValidateEntity(e); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", e.Type, err)
	}

	if err := s.entities.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", e.Type, err)
	}

	if err := s.queue.EnqueueMutation(ctx, e, models.ActionCreate); err != nil {
		return e, fmt.Errorf("failed to queue %s %s: %w", e.Type, e.ID, err)
	}

	s.logger.Debug("Entity added", "entity_type", e.Type, "entity_id", e.ID)
	return e, nil
}

// Update replaces an existing entity and queues the update.
// Returns storage.ErrEntityNotFound for a missing entity.
func (s *Service) Update(ctx context.Context, e *models.Entity) (*models.Entity, error) {
	e = e.Clone()
	e.UpdatedAt = s.clock.Now().UTC()

	if err := validation.ValidateEntity(e); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", e.Type, err)
	}

	if err := s.entities.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to save %s %s: %w", e.Type, e.ID, err)
	}

	if err := s.queue.EnqueueMutation(ctx, e, models.ActionUpdate); err != nil {
		return e, fmt.Errorf("failed to queue %s %s: %w", e.Type, e.ID, err)
	}

	s.logger.Debug("Entity updated", "entity_type", e.Type, "entity_id", e.ID)
	return e, nil
}

// Delete removes an entity and queues the deletion.
// Returns the removed entity or storage.ErrEntityNotFound.
func (s *Service) Delete(ctx context.Context, entityType models.EntityType, id string) (*models.Entity, error) {
	e, err := s.Get(ctx, entityType, id)
	if err != nil {
		return nil, err
	}

	if err := s.entities.Delete(ctx, entityType, id); err != nil {
		return nil, fmt.Errorf("failed to delete %s %s: %w", entityType, id, err)
	}

	if err := s.queue.EnqueueMutation(ctx, e, models.ActionDelete); err != nil {
		return e, fmt.Errorf("failed to queue %s %s: %w", entityType, id, err)
	}

	s.logger.Debug("Entity deleted", "entity_type", entityType, "entity_id", id)
	return e, nil
}

// Get returns one entity or storage.ErrEntityNotFound
func (s *Service) Get(ctx context.Context, entityType models.EntityType, id string) (*models.Entity, error) {
	e, err := s.entities.Get(ctx, entityType, id)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", entityType, id, err)
	}
	return e, nil
}

// List returns all entities of a type ordered by name, then id
func (s *Service) List(ctx context.Context, entityType models.EntityType) ([]*models.Entity, error) {
	list, err := s.entities.GetAll(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", entityType, err)
	}

	slices.SortFunc(list, func(a, b *models.Entity) int {
		if n := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); n != 0 {
			return n
		}
		return strings.Compare(a.ID, b.ID)
	})
	return list, nil
}
