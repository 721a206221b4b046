package testutil

import (
	"context"
	"sync"
	"time"
)

// RecordingSleeper stands in for simulated query latency in tests.
//
// It never blocks. Each call is recorded so tests can assert how often
// latency was applied and for how long.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingSleeper struct {
	mu    sync.Mutex
	calls []time.Duration
}

// NewRecordingSleeper creates a sleeper with no recorded calls.
func NewRecordingSleeper() *RecordingSleeper {
	return &RecordingSleeper{}
}

// Sleep records d and returns ctx.Err().
//
// Matches manager.SleepFunc when used as a method value.
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	s.mu.Unlock()
	return ctx.Err()
}

// Calls returns a copy of the recorded durations in call order.
func (s *RecordingSleeper) Calls() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.calls))
	copy(out, s.calls)
	return out
}

// Total returns the sum of recorded durations.
func (s *RecordingSleeper) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	for _, d := range s.calls {
		total += d
	}
	return total
}

// Reset forgets all recorded calls.
func (s *RecordingSleeper) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}
