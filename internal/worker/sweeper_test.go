package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/loadpoint/broker-outreach/internal/service/outreach"
)

type fakeRunner struct {
	calls int64
}

func (f *fakeRunner) Sweep(ctx context.Context) (outreach.SweepSummary, error) {
	atomic.AddInt64(&f.calls, 1)
	return outreach.SweepSummary{Due: 1, Sent: 1}, nil
}

func TestSweeperStartStop(t *testing.T) {
	runner := &fakeRunner{}
	s := NewSweeper(runner, nil, nil)
	s.SetInterval(10 * time.Millisecond)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("double Start() should return error")
	}

	// Let a few cycles run.
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	if n := atomic.LoadInt64(&runner.calls); n == 0 {
		t.Error("sweeper never ran a cycle")
	}

	// Stop after Stop is a no-op.
	s.Stop()
}

func TestSweeperSkipsCycleWhenLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	// Another host holds the sweep lock for the whole test.
	if err := client.SetNX(context.Background(), "lock:outreach:sweep", "other-host", time.Minute).Err(); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	runner := &fakeRunner{}
	s := NewSweeper(runner, client, nil)
	s.SetInterval(10 * time.Millisecond)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	if n := atomic.LoadInt64(&runner.calls); n != 0 {
		t.Errorf("sweeper ran %d cycles while lock was held elsewhere", n)
	}
}

func TestSweeperRunsWithRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	runner := &fakeRunner{}
	s := NewSweeper(runner, client, nil)
	s.SetInterval(10 * time.Millisecond)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	if n := atomic.LoadInt64(&runner.calls); n == 0 {
		t.Error("sweeper never acquired its own lock")
	}
}
