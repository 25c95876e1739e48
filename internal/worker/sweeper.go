// Package worker runs the background sweep loop that dispatches due
// outreach steps.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/loadpoint/broker-outreach/internal/pkg/distlock"
	"github.com/loadpoint/broker-outreach/internal/pkg/logger"
	"github.com/loadpoint/broker-outreach/internal/service/outreach"
)

const (
	// DefaultSweepInterval is how often the sweeper polls for due steps.
	DefaultSweepInterval = 30 * time.Second

	// sweepLockTTL bounds how long a crashed sweeper can hold the lock.
	sweepLockTTL = 2 * time.Minute

	// sweepTimeout bounds one sweep cycle end to end.
	sweepTimeout = 90 * time.Second
)

// SweepRunner is the slice of the outreach service the sweeper drives.
type SweepRunner interface {
	Sweep(ctx context.Context) (outreach.SweepSummary, error)
}

// Sweeper periodically runs the due-step sweep. A distributed lock keeps
// overlapping sweepers on different hosts from racing; the claim-based step
// processing makes even a lost lock safe, just wasteful.
type Sweeper struct {
	svc      SweepRunner
	lock     distlock.DistLock
	workerID string
	interval time.Duration

	cyclesRun  int64
	stepsSent  int64
	sweepFails int64

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

// NewSweeper creates a sweeper. With a Redis client the sweep lock lives in
// Redis; otherwise it falls back to a Postgres advisory lock; with neither,
// the sweeper runs unlocked (single-instance deployments).
func NewSweeper(svc SweepRunner, redisClient *redis.Client, db *sql.DB) *Sweeper {
	hostname, _ := os.Hostname()
	s := &Sweeper{
		svc:      svc,
		workerID: fmt.Sprintf("sweeper-%s-%d", hostname, time.Now().UnixNano()%10000),
		interval: DefaultSweepInterval,
	}
	if redisClient != nil || db != nil {
		s.lock = distlock.NewLock(redisClient, db, "outreach:sweep", sweepLockTTL)
	}
	return s
}

// SetInterval overrides the poll interval.
func (s *Sweeper) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Start begins the sweep polling loop.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	logger.Info("sweeper starting", "worker_id", s.workerID, "interval", s.interval.String())

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop gracefully stops the sweeper, waiting for an in-flight cycle.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	logger.Info("sweeper stopped",
		"worker_id", s.workerID,
		"cycles", fmt.Sprint(atomic.LoadInt64(&s.cyclesRun)),
		"steps_sent", fmt.Sprint(atomic.LoadInt64(&s.stepsSent)))
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runCycle()
		}
	}
}

// runCycle runs one locked sweep. Failure to acquire the lock means another
// host is sweeping; that cycle is simply skipped.
func (s *Sweeper) runCycle() {
	ctx, cancel := context.WithTimeout(s.ctx, sweepTimeout)
	defer cancel()

	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx)
		if err != nil {
			logger.Error("sweep lock acquire failed", "worker_id", s.workerID, "error", err.Error())
			return
		}
		if !acquired {
			return
		}
		defer func() {
			if err := s.lock.Release(context.Background()); err != nil {
				logger.Warn("sweep lock release failed", "worker_id", s.workerID, "error", err.Error())
			}
		}()
	}

	sum, err := s.svc.Sweep(ctx)
	atomic.AddInt64(&s.cyclesRun, 1)
	if err != nil {
		atomic.AddInt64(&s.sweepFails, 1)
		logger.Error("sweep cycle failed", "worker_id", s.workerID, "error", err.Error())
		return
	}
	atomic.AddInt64(&s.stepsSent, int64(sum.Sent))

	if sum.Due > 0 {
		logger.Info("sweep cycle complete",
			"worker_id", s.workerID,
			"due", fmt.Sprint(sum.Due),
			"sent", fmt.Sprint(sum.Sent),
			"failed", fmt.Sprint(sum.Failed),
			"cancelled", fmt.Sprint(sum.Cancelled),
			"skipped", fmt.Sprint(sum.Skipped))
	}
}
