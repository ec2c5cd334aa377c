package sync

import (
	"context"
	"fmt"

	"github.com/iudanet/mealsync/internal/models"
)

// Flush moves every queued mutation that is not being sent into the pending store,
// so it survives a process exit. Returns the number of moved items.
// An item that could not be stored stays queued.
func (s *Service) Flush(ctx context.Context) (int, error) {
	s.drainMu.Lock()
	defer s.drainMu.Unlock()

	s.mu.Lock()
	var items []*models.SyncItem
	for _, q := range s.queue {
		if !s.sending[q] {
			items = append(items, q)
		}
	}
	s.mu.Unlock()

	moved := 0
	for _, q := range items {
		if err := s.pending.StorePending(ctx, *q); err != nil {
			s.publishQueue()
			return moved, fmt.Errorf("failed to flush %s: %w", q.Key(), err)
		}
		s.remove(q)
		moved++
	}

	if moved > 0 {
		s.publishQueue()
		s.logger.Info("Queued mutations flushed to pending store", "items", moved)
	}
	return moved, nil
}
