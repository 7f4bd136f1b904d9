package composer

import (
	"sync"
	"time"
)

// Sequencer hands out article sequence numbers.
type Sequencer interface {
	Next() int64
}

// TimeSequencer derives sequence numbers from the wall clock in
// milliseconds and never returns the same or a smaller value twice.
type TimeSequencer struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewTimeSequencer(now func() time.Time) *TimeSequencer {
	if now == nil {
		now = time.Now
	}
	return &TimeSequencer{now: now}
}

func (s *TimeSequencer) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.now().UnixMilli()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return n
}
