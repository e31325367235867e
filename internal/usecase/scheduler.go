package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"PaperRadar/internal/config"
	"PaperRadar/internal/domain"
	"PaperRadar/internal/ports"
)

const defaultStopTimeout = 5 * time.Second

// SchedulerDeps wires the two job workflows and the status store into
// the scheduler.
type SchedulerDeps struct {
	Collection *Collection
	Pipeline   *Pipeline
	Status     ports.StatusStore
	Config     config.SchedulerConfig
	Logger     *slog.Logger
}

// Scheduler owns the periodic collection and processing jobs. It is a
// two-state machine (stopped, running) driven by a single goroutine that
// polls for due jobs once per poll interval. Both jobs stay manually
// triggerable whether or not the loop is running.
type Scheduler struct {
	collection *Collection
	pipeline   *Pipeline
	store      ports.StatusStore
	cfg        config.SchedulerConfig
	logger     *slog.Logger

	batchLimit  int
	stopTimeout time.Duration

	mu      sync.Mutex // guards running/stop/done transitions
	running bool
	stop    chan struct{}
	done    chan struct{}

	// collectMu and processMu serialize job executions so a manual
	// trigger can never overlap the periodic loop for the same job.
	collectMu sync.Mutex
	processMu sync.Mutex

	statusMu sync.RWMutex
	status   domain.SchedulerStatus
}

// NewScheduler constructs the scheduler and loads the persisted status
// snapshot. A stale running=true on disk is normalized to false: the
// loop only runs after an explicit Start.
func NewScheduler(deps SchedulerDeps, batchLimit int) *Scheduler {
	cfg := deps.Config
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.CollectionInterval <= 0 {
		cfg.CollectionInterval = 24 * time.Hour
	}
	if cfg.ProcessingInterval <= 0 {
		cfg.ProcessingInterval = 6 * time.Hour
	}
	if batchLimit <= 0 {
		batchLimit = 10
	}

	s := &Scheduler{
		collection:  deps.Collection,
		pipeline:    deps.Pipeline,
		store:       deps.Status,
		cfg:         cfg,
		logger:      deps.Logger,
		batchLimit:  batchLimit,
		stopTimeout: defaultStopTimeout,
	}

	if s.store != nil {
		status, err := s.store.LoadStatus(context.Background())
		if err != nil {
			s.warn("status load failed", "error", err)
		} else {
			status.Running = false
			s.status = status
		}
	}

	return s
}

// Start moves the scheduler to running and launches the poll loop.
// Returns false, without side effects, when it is already running.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}

	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	s.mutateStatus(func(status *domain.SchedulerStatus) {
		status.Running = true
	})

	go s.loop(s.stop, s.done)

	s.debug("scheduler started",
		"collection_interval", s.cfg.CollectionInterval,
		"processing_interval", s.cfg.ProcessingInterval)
	return true
}

// Stop signals the poll loop to exit and waits for it, bounded by the
// stop timeout. Returns false when the scheduler is not running. A job
// already in flight finishes on its own and still records its status.
func (s *Scheduler) Stop(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}

	close(s.stop)
	select {
	case <-s.done:
	case <-time.After(s.stopTimeout):
		s.warn("scheduler loop did not exit before timeout")
	case <-ctx.Done():
	}

	s.running = false
	s.mutateStatus(func(status *domain.SchedulerStatus) {
		status.Running = false
	})

	s.debug("scheduler stopped")
	return true
}

// Status returns a copy of the current status snapshot.
func (s *Scheduler) Status() domain.SchedulerStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// RunCollectionNow triggers the collection job synchronously, outside
// the periodic loop. Returns domain.ErrJobInProgress when a collection
// run is already executing.
func (s *Scheduler) RunCollectionNow(ctx context.Context) (domain.CollectionStats, error) {
	if !s.collectMu.TryLock() {
		return domain.CollectionStats{}, domain.ErrJobInProgress
	}
	defer s.collectMu.Unlock()
	return s.runCollection(ctx), nil
}

// RunProcessingNow triggers the processing job synchronously, outside
// the periodic loop. Returns domain.ErrJobInProgress when a processing
// run is already executing.
func (s *Scheduler) RunProcessingNow(ctx context.Context, limit int) (domain.ProcessingStats, error) {
	if !s.processMu.TryLock() {
		return domain.ProcessingStats{}, domain.ErrJobInProgress
	}
	defer s.processMu.Unlock()
	return s.runProcessing(ctx, limit), nil
}

// loop drives periodic jobs detached from any request context; Start
// callers (often HTTP handlers) must not tie the loop's lifetime to a
// single request.
func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx := context.Background()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	now := time.Now()
	nextCollection := now.Add(s.cfg.CollectionInterval)
	nextProcessing := now.Add(s.cfg.ProcessingInterval)

	for {
		select {
		case <-stop:
			return
		case tick := <-ticker.C:
			if !tick.Before(nextCollection) {
				if s.collectMu.TryLock() {
					s.runCollection(ctx)
					s.collectMu.Unlock()
				}
				nextCollection = time.Now().Add(s.cfg.CollectionInterval)
			}
			if !tick.Before(nextProcessing) {
				if s.processMu.TryLock() {
					s.runProcessing(ctx, s.batchLimit)
					s.processMu.Unlock()
				}
				nextProcessing = time.Now().Add(s.cfg.ProcessingInterval)
			}
		}
	}
}

// runCollection executes the job body and records its outcome. The
// status snapshot is written even when the job errors; in that case the
// stats carry the error text instead of counts.
func (s *Scheduler) runCollection(ctx context.Context) domain.CollectionStats {
	started := time.Now().UTC()
	s.debug("collection run started", "at", started)

	stats := domain.CollectionStats{BySource: map[string]int{}, Timestamp: started}
	if s.collection != nil {
		result, err := s.collection.Run(ctx)
		stats = result
		if err != nil {
			s.warn("collection run failed", "error", err)
			stats.Error = err.Error()
		}
	}

	s.mutateStatus(func(status *domain.SchedulerStatus) {
		status.LastCollection = &started
		snapshot := stats
		status.CollectionStats = &snapshot
	})

	s.debug("collection run finished", "total", stats.Total, "errors", stats.Errors)
	return stats
}

func (s *Scheduler) runProcessing(ctx context.Context, limit int) domain.ProcessingStats {
	started := time.Now().UTC()
	s.debug("processing run started", "at", started, "limit", limit)

	stats := domain.ProcessingStats{Timestamp: started}
	if s.pipeline != nil {
		result, err := s.pipeline.ProcessPending(ctx, limit)
		stats = result
		if err != nil {
			s.warn("processing run failed", "error", err)
			stats.Error = err.Error()
		}
	}

	s.mutateStatus(func(status *domain.SchedulerStatus) {
		status.LastProcessing = &started
		snapshot := stats
		status.ProcessingStats = &snapshot
	})

	s.debug("processing run finished",
		"summarized", stats.Summarized, "embedded", stats.Embedded, "errors", stats.Errors)
	return stats
}

// mutateStatus applies the change under the status lock and persists the
// resulting snapshot. Readers see either the old or the new snapshot,
// never a partial one.
func (s *Scheduler) mutateStatus(change func(*domain.SchedulerStatus)) {
	s.statusMu.Lock()
	change(&s.status)
	snapshot := s.status
	s.statusMu.Unlock()

	if s.store == nil {
		return
	}
	if err := s.store.SaveStatus(context.Background(), snapshot); err != nil {
		s.warn("status save failed", "error", err)
	}
}

func (s *Scheduler) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Scheduler) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
