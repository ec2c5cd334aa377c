package sync

import (
	"context"
	"fmt"
	gosync "sync"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/mealsync/internal/models"
)

// job все отправки одной сущности: сначала сохраненные повторы, затем элемент очереди.
// Один job выполняется одним воркером целиком.
type job struct {
	key    string
	stored []models.SyncItem
	queued *models.SyncItem
}

// drainResult агрегирует результаты воркеров
type drainResult struct {
	mu        gosync.Mutex
	processed int
	failed    int
	lastErr   error
	types     map[models.EntityType]bool
}

func (r *drainResult) success() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.processed++
	return r.processed
}

func (r *drainResult) failure(t models.EntityType, err error) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.processed++
	r.failed++
	r.lastErr = err
	r.types[t] = true
	return r.processed
}

// Drain dispatches queued mutations and retryable stored ones to the remote API.
// It does nothing while sync is disabled or the server is unreachable.
// Failures are recorded in the pending store and the status, never returned.
func (s *Service) Drain(ctx context.Context) {
	if !s.SyncEnabled() {
		s.logger.Debug("Sync disabled, skipping drain")
		return
	}

	if !s.connectivity.IsOnline(ctx) {
		s.logger.Info("Server unreachable, keeping mutations queued")
		return
	}

	s.drainMu.Lock()
	defer s.drainMu.Unlock()

	retryable, err := s.pending.ListRetryable(ctx)
	if err != nil {
		// Очередь в памяти все равно отправляем
		s.logger.Warn("Failed to list retryable mutations", "error", err)
		retryable = nil
	}

	jobs, total := s.planJobs(retryable)
	if len(jobs) == 0 {
		return
	}

	s.logger.Info("Draining mutations", "items", total, "entities", len(jobs))

	s.status.Update(func(st models.SyncStatus) models.SyncStatus {
		st.State = models.SyncStateSyncing
		st.Message = "Sending local changes"
		st.TotalItems = total
		st.ProcessedItems = 0
		return st
	})

	res := &drainResult{types: make(map[models.EntityType]bool)}

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, j := range jobs {
		g.Go(func() error {
			s.runJob(ctx, j, res)
			return nil
		})
	}
	_ = g.Wait()

	s.publishQueue()

	for t := range res.types {
		if err := s.pending.HandleSyncFailure(ctx, t); err != nil {
			s.logger.Warn("Failed to reset in-flight mutations",
				"entity_type", t,
				"error", err)
		}
	}

	s.status.Update(func(st models.SyncStatus) models.SyncStatus {
		st.ProcessedItems = st.TotalItems
		switch {
		case res.failed > 0:
			st.State = models.SyncStateError
			st.Message = fmt.Sprintf("%d of %d mutation(s) failed: %v", res.failed, total, res.lastErr)
		case s.conflicts.HasUnresolved():
			st.State = models.SyncStateConflicts
			st.Message = fmt.Sprintf("%d conflict(s) require resolution", s.conflicts.CountUnresolved())
		default:
			st.State = models.SyncStateIdle
			st.Message = ""
		}
		st.State = s.settledState(st.State)
		return st
	})

	s.logger.Info("Drain finished", "items", total, "failed", res.failed)
}

// planJobs группирует мутации по сущности в порядке FIFO.
// Для ключа берется только первый еще не отправляемый элемент очереди.
func (s *Service) planJobs(retryable []models.SyncItem) ([]*job, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var jobs []*job
	byKey := make(map[string]*job)
	total := 0

	get := func(key string) *job {
		if j, ok := byKey[key]; ok {
			return j
		}
		j := &job{key: key}
		byKey[key] = j
		jobs = append(jobs, j)
		return j
	}

	queued := make(map[string]*models.SyncItem)
	for _, q := range s.queue {
		if s.sending[q] {
			continue
		}
		if _, ok := queued[q.Key()]; !ok {
			queued[q.Key()] = q
		}
	}

	for _, item := range retryable {
		// Элемент очереди с тем же действием заменяет устаревшую сохраненную версию
		if q, ok := queued[item.Key()]; ok && q.Action == item.Action {
			continue
		}
		j := get(item.Key())
		j.stored = append(j.stored, item)
		total++
	}

	for _, q := range s.queue {
		if queued[q.Key()] != q {
			continue
		}
		j := get(q.Key())
		j.queued = q
		s.sending[q] = true
		total++
	}

	return jobs, total
}

func (s *Service) runJob(ctx context.Context, j *job, res *drainResult) {
	for _, item := range j.stored {
		if err := s.pending.MarkSyncing(ctx, item); err != nil {
			s.logger.Warn("Failed to mark mutation syncing",
				"entity_type", item.EntityType,
				"entity_id", item.ID,
				"error", err)
			s.release(j.queued)
			return
		}

		if err := s.dispatch(ctx, item); err != nil {
			retries, ierr := s.pending.IncrementRetry(ctx, item)
			if ierr != nil {
				s.logger.Warn("Failed to record retry", "entity_id", item.ID, "error", ierr)
			}
			s.logger.Warn("Retry failed",
				"entity_type", item.EntityType,
				"entity_id", item.ID,
				"action", item.Action,
				"retry_count", retries,
				"error", err)
			s.progress(res.failure(item.EntityType, err))

			// Порядок по сущности: следующий элемент ждет следующего прохода
			s.release(j.queued)
			return
		}

		if err := s.pending.MarkSynced(ctx, item); err != nil {
			s.logger.Warn("Failed to remove synced mutation", "entity_id", item.ID, "error", err)
		}
		s.progress(res.success())
	}

	if j.queued == nil {
		return
	}

	item := *j.queued
	err := s.dispatch(ctx, item)
	s.remove(j.queued)

	if err != nil {
		s.logger.Warn("Mutation failed",
			"entity_type", item.EntityType,
			"entity_id", item.ID,
			"action", item.Action,
			"error", err)
		if serr := s.pending.StorePending(ctx, item); serr != nil {
			s.logger.Error("Failed to store pending mutation", "entity_id", item.ID, "error", serr)
		}
		s.progress(res.failure(item.EntityType, err))
		return
	}

	// Запись могла остаться от прошлой неудачной попытки
	if err := s.pending.MarkSynced(ctx, item); err != nil {
		s.logger.Warn("Failed to remove synced mutation", "entity_id", item.ID, "error", err)
	}
	s.progress(res.success())
}

// dispatch отправляет одну мутацию на сервер
func (s *Service) dispatch(ctx context.Context, item models.SyncItem) error {
	switch item.Action {
	case models.ActionDelete:
		return s.api.Delete(ctx, item.EntityType, item.ID)
	case models.ActionCreate, models.ActionUpdate:
		entity, err := models.DecodePayload(item.Payload)
		if err != nil {
			return fmt.Errorf("failed to decode payload: %w", err)
		}
		if item.Action == models.ActionCreate {
			_, err = s.api.Create(ctx, entity)
		} else {
			_, err = s.api.Update(ctx, item.ID, entity)
		}
		return err
	}
	return fmt.Errorf("unknown action %q", item.Action)
}

// release возвращает элемент очереди в ожидание
func (s *Service) release(q *models.SyncItem) {
	if q == nil {
		return
	}
	s.mu.Lock()
	delete(s.sending, q)
	s.mu.Unlock()
}

// remove убирает обработанный элемент из очереди
func (s *Service) remove(q *models.SyncItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sending, q)
	for i, it := range s.queue {
		if it == q {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
}

func (s *Service) progress(processed int) {
	s.status.Update(func(st models.SyncStatus) models.SyncStatus {
		st.ProcessedItems = processed
		return st
	})
}
