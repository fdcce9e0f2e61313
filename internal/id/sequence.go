package id

import (
	"strconv"
	"sync"
	"time"
)

// MaxObserved is the largest stored id Observe accepts: the largest integer
// a browser client can hold exactly. Larger imported ids are ignored so the
// sequence can never be pushed to overflow.
const MaxObserved int64 = 1<<53 - 1

// Sequence hands out time-derived record ids.
//
// Each value is the current wall clock in milliseconds, bumped past the
// previous value when two calls land in the same millisecond (or the clock
// steps backwards). Values are therefore strictly increasing for the life of
// the Sequence without any central allocator.
type Sequence struct {
	now  func() time.Time
	last int64
	mu   sync.Mutex
}

// NewSequence returns a Sequence backed by the system clock.
func NewSequence() *Sequence {
	return &Sequence{now: time.Now}
}

// NewSequenceWithClock returns a Sequence reading time from now.
func NewSequenceWithClock(now func() time.Time) *Sequence {
	return &Sequence{now: now}
}

// Next returns the next id.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.now().UnixMilli()
	if v <= s.last {
		v = s.last + 1
	}
	s.last = v
	return v
}

// NextString returns Next formatted in base 10.
// Until the year 2286 these strings are 13 digits wide, so string order
// agrees with numeric order.
func (s *Sequence) NextString() string {
	return strconv.FormatInt(s.Next(), 10)
}

// Observe records an id that already exists in storage so it is never
// handed out again, even if the clock is behind the process that wrote it.
// Ids above MaxObserved are ignored.
func (s *Sequence) Observe(v int64) {
	if v > MaxObserved {
		return
	}
	s.mu.Lock()
	if v > s.last {
		s.last = v
	}
	s.mu.Unlock()
}

// ObserveString is Observe for ids in string form. Non-numeric ids are ignored.
func (s *Sequence) ObserveString(v string) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return
	}
	s.Observe(n)
}
