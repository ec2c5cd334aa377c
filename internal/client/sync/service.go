// Package sync coordinates local mutations, the remote API, conflict detection
// and the persisted retry queue.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/iudanet/mealsync/internal/client/storage"
	"github.com/iudanet/mealsync/internal/clock"
	"github.com/iudanet/mealsync/internal/models"
)

const (
	// DefaultWorkers количество параллельных отправок мутаций
	DefaultWorkers = 4
	// DefaultInterval период автоматической синхронизации
	DefaultInterval = 15 * time.Minute
	// DefaultConnectivityPoll период опроса доступности сервера в Run
	DefaultConnectivityPoll = 30 * time.Second
	// cleanupInterval период удаления устаревших pending записей
	cleanupInterval = 24 * time.Hour
)

// ErrSyncInProgress returned by FullSync when another full sync is running
var ErrSyncInProgress = errors.New("full sync already in progress")

// Deps collaborators of the Service
type Deps struct {
	API          RemoteAPI
	Entities     storage.EntityStorage
	Metadata     storage.MetadataStorage
	Pending      PendingStore
	Conflicts    ConflictResolver
	Connectivity Connectivity
	// ConflictStore optional, keeps open conflicts between runs
	ConflictStore storage.ConflictStorage
}

// Options tuning knobs, zero values mean defaults
type Options struct {
	Clock            clock.Clock
	Workers          int
	Interval         time.Duration
	ConnectivityPoll time.Duration
}

// Service is the sync orchestrator.
// All methods are safe for concurrent use.
type Service struct {
	api           RemoteAPI
	entities      storage.EntityStorage
	metadata      storage.MetadataStorage
	pending       PendingStore
	conflicts     ConflictResolver
	connectivity  Connectivity
	conflictStore storage.ConflictStorage
	clock         clock.Clock
	logger        *slog.Logger

	workers          int
	connectivityPoll time.Duration
	deviceID         string

	mu    gosync.Mutex
	queue []*models.SyncItem
	// sending элементы очереди, которые сейчас отправляются
	sending  map[*models.SyncItem]bool
	enabled  bool
	interval time.Duration

	// drainMu один проход очереди за раз
	drainMu gosync.Mutex
	// fullSyncMu одна полная синхронизация за раз
	fullSyncMu gosync.Mutex
	background gosync.WaitGroup

	status       *broadcaster[models.SyncStatus]
	pendingItems *broadcaster[[]models.SyncItem]
	trigger      chan struct{}
}

// NewService creates the orchestrator and restores persisted state:
// device id, last sync timestamp, sync switch, interval and open conflicts.
func NewService(ctx context.Context, deps Deps, opts Options, logger *slog.Logger) (*Service, error) {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ConnectivityPoll <= 0 {
		opts.ConnectivityPoll = DefaultConnectivityPoll
	}

	deviceID, err := deps.Metadata.GetDeviceID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device id: %w", err)
	}

	lastSync, err := deps.Metadata.GetLastSyncTimestamp(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get last sync timestamp: %w", err)
	}

	enabled, err := deps.Metadata.IsSyncEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync enabled flag: %w", err)
	}

	interval, err := deps.Metadata.GetSyncInterval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync interval: %w", err)
	}
	if interval <= 0 {
		interval = opts.Interval
	}

	if deps.ConflictStore != nil {
		stored, err := deps.ConflictStore.ListConflicts(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load conflicts: %w", err)
		}
		deps.Conflicts.Restore(stored)
	}

	state := models.SyncStateIdle
	if !enabled {
		state = models.SyncStateDisabled
	}

	s := &Service{
		api:              deps.API,
		entities:         deps.Entities,
		metadata:         deps.Metadata,
		pending:          deps.Pending,
		conflicts:        deps.Conflicts,
		connectivity:     deps.Connectivity,
		conflictStore:    deps.ConflictStore,
		clock:            opts.Clock,
		logger:           logger,
		workers:          opts.Workers,
		connectivityPoll: opts.ConnectivityPoll,
		deviceID:         deviceID,
		sending:          make(map[*models.SyncItem]bool),
		enabled:          enabled,
		interval:         interval,
		status: newBroadcaster(models.SyncStatus{
			State:             state,
			LastSyncTimestamp: lastSync,
		}),
		pendingItems: newBroadcaster[[]models.SyncItem](nil),
		trigger:      make(chan struct{}, 1),
	}

	return s, nil
}

// DeviceID returns the per-installation id stamped on every mutation
func (s *Service) DeviceID() string {
	return s.deviceID
}

// CurrentStatus returns the latest published status
func (s *Service) CurrentStatus() models.SyncStatus {
	return s.status.Get()
}

// SubscribeStatus streams status updates until ctx is done (last value wins)
func (s *Service) SubscribeStatus(ctx context.Context) <-chan models.SyncStatus {
	return s.status.Subscribe(ctx)
}

// PendingItems returns a snapshot of the in-memory queue
func (s *Service) PendingItems() []models.SyncItem {
	return s.pendingItems.Get()
}

// SubscribePendingItems streams queue snapshots until ctx is done (last value wins)
func (s *Service) SubscribePendingItems(ctx context.Context) <-chan []models.SyncItem {
	return s.pendingItems.Subscribe(ctx)
}

// Conflicts returns all conflicts held by the resolver
func (s *Service) Conflicts() []*models.ConflictResolution {
	return s.conflicts.ListConflicts()
}

// SyncEnabled reports the automatic sync switch
func (s *Service) SyncEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enabled
}

// Interval returns the current periodic sync cadence
func (s *Service) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.interval
}

// SetSyncEnabled persists the switch. Disabling stops automatic draining and
// periodic triggers, enabling resumes them.
func (s *Service) SetSyncEnabled(ctx context.Context, enabled bool) error {
	if err := s.metadata.SetSyncEnabled(ctx, enabled); err != nil {
		return fmt.Errorf("failed to save sync enabled flag: %w", err)
	}

	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()

	if enabled {
		s.setState(models.SyncStateIdle, "")
		s.Trigger()
	} else {
		s.setState(models.SyncStateDisabled, "")
	}

	s.logger.Info("Sync enabled changed", "enabled", enabled)
	return nil
}

// SetSyncInterval persists the periodic cadence, applied on the next scheduling cycle
func (s *Service) SetSyncInterval(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid sync interval %s", interval)
	}
	if err := s.metadata.SetSyncInterval(ctx, interval); err != nil {
		return fmt.Errorf("failed to save sync interval: %w", err)
	}

	s.mu.Lock()
	s.interval = interval
	s.mu.Unlock()

	s.logger.Info("Sync interval changed", "interval", interval)
	return nil
}

// Trigger requests a drain from the Run loop without blocking
func (s *Service) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// EnqueueMutation queues a mutation of entity and triggers a drain when sync is enabled.
// A queued, not yet dispatched item for the same entity is coalesced with the new one.
func (s *Service) EnqueueMutation(ctx context.Context, entity *models.Entity, action models.Action) error {
	if entity == nil || entity.ID == "" {
		return errors.New("entity id is required")
	}
	if !entity.Type.Valid() {
		return fmt.Errorf("unknown entity type %q", entity.Type)
	}
	if !action.Valid() {
		return fmt.Errorf("unknown action %q", action)
	}

	item := &models.SyncItem{
		ID:             entity.ID,
		EntityType:     entity.Type,
		Action:         action,
		Timestamp:      s.clock.Now(),
		OriginDeviceID: s.deviceID,
	}

	if action != models.ActionDelete {
		payload, err := models.EncodePayload(entity)
		if err != nil {
			return fmt.Errorf("failed to encode entity: %w", err)
		}
		item.Payload = payload
	}

	s.mu.Lock()
	s.queue = coalesce(s.queue, item, s.sending)
	enabled := s.enabled
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.pendingItems.Publish(snapshot)

	s.logger.Debug("Mutation enqueued",
		"entity_type", item.EntityType,
		"entity_id", item.ID,
		"action", item.Action)

	if enabled {
		s.Trigger()
	}
	return nil
}

// coalesce добавляет item в очередь, объединяя его с ожидающим элементом того же ключа.
// Элементы, уже отправляемые на сервер, не трогаются.
func coalesce(queue []*models.SyncItem, item *models.SyncItem, sending map[*models.SyncItem]bool) []*models.SyncItem {
	key := item.Key()

	for i, q := range queue {
		if q.Key() != key || sending[q] {
			continue
		}

		switch {
		case q.Action == models.ActionCreate && item.Action == models.ActionUpdate:
			// Сервер еще не знает о сущности: отправим create с последним содержимым
			q.Payload = item.Payload
			q.Timestamp = item.Timestamp
		case q.Action == models.ActionCreate && item.Action == models.ActionDelete:
			return append(queue[:i:i], queue[i+1:]...)
		case q.Action == models.ActionDelete && item.Action == models.ActionCreate:
			// Удаление не дошло до сервера, сущность там еще есть
			item.Action = models.ActionUpdate
			queue[i] = item
		default:
			queue[i] = item
		}
		return queue
	}

	return append(queue, item)
}

// snapshotLocked копия очереди, вызывать под s.mu
func (s *Service) snapshotLocked() []models.SyncItem {
	out := make([]models.SyncItem, 0, len(s.queue))
	for _, q := range s.queue {
		out = append(out, *q)
	}
	return out
}

func (s *Service) publishQueue() {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.pendingItems.Publish(snapshot)
}

func (s *Service) setState(state models.SyncState, message string) {
	s.status.Update(func(st models.SyncStatus) models.SyncStatus {
		st.State = state
		st.Message = message
		return st
	})
}

// StartFullSync runs FullSync in the background and returns immediately.
// The outcome is published through the status stream.
func (s *Service) StartFullSync(ctx context.Context) {
	s.setState(models.SyncStateSyncing, "Full sync started")

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := s.FullSync(ctx); err != nil {
			s.logger.Warn("Full sync failed", "error", err)
		}
	}()
}

// FullSync fetches every entity type, merges server state into the local store,
// applies resolved conflicts and persists the new last sync timestamp.
// A fetch failure leaves the timestamp untouched.
func (s *Service) FullSync(ctx context.Context) error {
	if !s.fullSyncMu.TryLock() {
		return ErrSyncInProgress
	}
	defer s.fullSyncMu.Unlock()

	s.logger.Info("Starting full synchronization")

	lastSync, err := s.metadata.GetLastSyncTimestamp(ctx)
	if err != nil {
		return s.failFullSync(ctx, fmt.Errorf("failed to get last sync timestamp: %w", err))
	}

	types := models.AllEntityTypes()
	s.status.Update(func(st models.SyncStatus) models.SyncStatus {
		st.State = models.SyncStateSyncing
		st.Message = "Fetching server state"
		st.TotalItems = len(types)
		st.ProcessedItems = 0
		return st
	})

	// Сначала забираем все типы: слияние начинается только после успешной загрузки
	fetched := make(map[models.EntityType][]*models.Entity, len(types))
	for _, t := range types {
		list, err := s.api.FetchAll(ctx, t)
		if err != nil {
			return s.failFullSync(ctx, fmt.Errorf("failed to fetch %s: %w", t, err))
		}
		fetched[t] = list
	}

	skip, err := s.pendingDeletes(ctx)
	if err != nil {
		return s.failFullSync(ctx, err)
	}

	var total mergeResult
	for i, t := range types {
		res, err := s.mergeType(ctx, t, fetched[t], lastSync, skip)
		if err != nil {
			return s.failFullSync(ctx, err)
		}
		total.Inserted += res.Inserted
		total.Updated += res.Updated
		total.Skipped += res.Skipped
		total.Conflicts += res.Conflicts

		s.status.Update(func(st models.SyncStatus) models.SyncStatus {
			st.ProcessedItems = i + 1
			return st
		})
	}

	applied, err := s.applyResolved(ctx)
	if err != nil {
		return s.failFullSync(ctx, err)
	}

	now := s.clock.Now().UnixMilli()
	if err := s.metadata.SaveLastSyncTimestamp(ctx, now); err != nil {
		return s.failFullSync(ctx, fmt.Errorf("failed to save last sync timestamp: %w", err))
	}

	unresolved := s.conflicts.CountUnresolved()

	s.logger.Info("Synchronization completed",
		"inserted", total.Inserted,
		"updated", total.Updated,
		"skipped", total.Skipped,
		"conflicts", total.Conflicts,
		"resolved_applied", applied,
		"unresolved", unresolved)

	s.status.Update(func(st models.SyncStatus) models.SyncStatus {
		st.LastSyncTimestamp = now
		st.ProcessedItems = st.TotalItems
		if unresolved > 0 {
			st.State = models.SyncStateConflicts
			st.Message = fmt.Sprintf("%d conflict(s) require resolution", unresolved)
		} else {
			st.State = models.SyncStateCompleted
			st.Message = ""
		}
		st.State = s.settledState(st.State)
		return st
	})

	return nil
}

// failFullSync публикует ошибку и возвращает в pending все записи, застрявшие в syncing
func (s *Service) failFullSync(ctx context.Context, err error) error {
	s.logger.Error("Full synchronization failed", "error", err)

	for _, t := range models.AllEntityTypes() {
		if herr := s.pending.HandleSyncFailure(ctx, t); herr != nil {
			s.logger.Warn("Failed to reset in-flight mutations",
				"entity_type", t,
				"error", herr)
		}
	}

	s.setState(s.settledState(models.SyncStateError), err.Error())
	return err
}

// settledState итоговое состояние прохода: выключенная синхронизация остается Disabled,
// даже если ее выключили во время отправки
func (s *Service) settledState(state models.SyncState) models.SyncState {
	if !s.SyncEnabled() {
		return models.SyncStateDisabled
	}
	return state
}

// pendingDeletes ключи сущностей, удаление которых еще не подтверждено сервером
func (s *Service) pendingDeletes(ctx context.Context) (map[string]bool, error) {
	skip := make(map[string]bool)

	s.mu.Lock()
	for _, q := range s.queue {
		if q.Action == models.ActionDelete {
			skip[q.Key()] = true
		}
	}
	s.mu.Unlock()

	stored, err := s.pending.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending mutations: %w", err)
	}
	for _, item := range stored {
		if item.Action == models.ActionDelete {
			skip[item.Key()] = true
		}
	}

	return skip, nil
}

// ResolveConflict resolves a conflict, applies the result locally and queues
// the push to the server when the winner is not the server version.
func (s *Service) ResolveConflict(ctx context.Context, id string, strategy models.ConflictStrategy, custom *models.Entity) (*models.ConflictResolution, error) {
	c, err := s.conflicts.ResolveConflict(id, strategy, custom)
	if err != nil {
		return nil, err
	}

	if _, err := s.applyResolved(ctx); err != nil {
		return c, err
	}

	if !s.conflicts.HasUnresolved() {
		s.status.Update(func(st models.SyncStatus) models.SyncStatus {
			if st.State == models.SyncStateConflicts {
				st.State = models.SyncStateCompleted
				st.Message = ""
			}
			return st
		})
	}

	return c, nil
}

// Wait blocks until background full syncs started by StartFullSync finish
func (s *Service) Wait() {
	s.background.Wait()
}
