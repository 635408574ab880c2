package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
)

// ErrNoSnapshot is returned before the first successful sync completes
var ErrNoSnapshot = errors.New("no snapshot available")

// Scheduler runs the pipeline periodically and holds the latest snapshot.
// Concurrent cycles resolve by generation: the later-started cycle wins,
// a stale result is discarded.
type Scheduler struct {
	pipeline *Pipeline
	interval time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu      sync.Mutex
	current *Snapshot
	lastErr error
	nextGen int64 // next cycle generation to hand out
	applied int64 // generation of the stored snapshot
}

// NewScheduler creates a scheduler running the pipeline at the given interval
func NewScheduler(p *Pipeline, interval time.Duration) *Scheduler {
	if interval == 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{pipeline: p, interval: interval}
}

// Start begins the periodic sync worker, running one cycle immediately
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.syncWorker(ctx)

	lgr.Printf("[INFO] scheduler started with sync interval %v", s.interval)
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

func (s *Scheduler) syncWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// run immediately on start
	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// SyncNow triggers an immediate cycle, blocking until it completes
func (s *Scheduler) SyncNow(ctx context.Context) (*Snapshot, error) {
	return s.runCycle(ctx)
}

// runCycle executes one sync and stores the result unless a later-started
// cycle already published its snapshot
func (s *Scheduler) runCycle(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	s.nextGen++
	gen := s.nextGen
	s.mu.Unlock()

	snap, err := s.pipeline.Sync(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen < s.applied {
		// a later-started cycle already published, neither its snapshot nor
		// its failure may overwrite the fresher state
		lgr.Printf("[DEBUG] discarding stale sync result, generation %d < %d", gen, s.applied)
		return s.current, nil
	}

	if err != nil {
		lgr.Printf("[ERROR] sync cycle failed: %v", err)
		s.lastErr = err
		if s.current != nil {
			return s.current, err // keep serving the previous snapshot
		}
		return nil, err
	}

	s.current = snap
	s.applied = gen
	s.lastErr = nil
	return snap, nil
}

// Snapshot returns the latest completed snapshot
func (s *Scheduler) Snapshot() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		if s.lastErr != nil {
			return nil, s.lastErr
		}
		return nil, ErrNoSnapshot
	}
	return s.current, nil
}

// LastError returns the error from the most recent failed cycle, nil after
// a successful cycle
func (s *Scheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
