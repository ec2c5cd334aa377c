package sync

import (
	"context"
	"time"
)

// Run drives automatic synchronization until ctx is done:
// drains on Trigger, drains and fully syncs on every interval tick,
// drains when the server becomes reachable again and purges stale pending records daily.
// On stop the remaining queue is flushed to the pending store.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("Sync loop started", "interval", s.Interval())

	interval := s.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	poll := time.NewTicker(s.connectivityPoll)
	defer poll.Stop()

	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	s.cleanupOld(ctx)
	online := s.connectivity.IsOnline(ctx)

	for {
		select {
		case <-ctx.Done():
			s.background.Wait()
			// Неотправленная очередь переживает перезапуск
			if _, err := s.Flush(context.WithoutCancel(ctx)); err != nil {
				s.logger.Error("Failed to flush queue on stop", "error", err)
			}
			s.logger.Info("Sync loop stopped")
			return nil

		case <-s.trigger:
			s.Drain(ctx)

		case <-ticker.C:
			// Новый интервал применяется со следующего цикла
			if current := s.Interval(); current != interval {
				interval = current
				ticker.Reset(interval)
			}

			if !s.SyncEnabled() {
				continue
			}
			s.Drain(ctx)
			if err := s.FullSync(ctx); err != nil {
				s.logger.Warn("Periodic sync failed", "error", err)
			}

		case <-poll.C:
			now := s.connectivity.IsOnline(ctx)
			if now && !online {
				s.logger.Info("Server reachable again, draining queue")
				s.Drain(ctx)
			}
			online = now

		case <-cleanup.C:
			s.cleanupOld(ctx)
		}
	}
}

func (s *Service) cleanupOld(ctx context.Context) {
	if _, err := s.pending.CleanupOld(ctx); err != nil {
		s.logger.Warn("Failed to cleanup old pending mutations", "error", err)
	}
}
