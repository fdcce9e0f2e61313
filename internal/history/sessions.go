package history

import (
	"sync"
	"time"
)

const (
	// DefaultTTL is how long an untouched history survives.
	DefaultTTL = 30 * time.Minute
	// DefaultMaxEntries caps the number of live histories.
	DefaultMaxEntries = 1000
)

type sessionKey struct {
	session string
	key     string
}

type entry struct {
	history  *History
	lastUsed time.Time
}

// Result describes a history after an operation.
type Result struct {
	Snapshot string `json:"snapshot,omitempty"`
	Undo     int    `json:"undo"`
	Redo     int    `json:"redo"`
	OK       bool   `json:"ok"`
}

// Sessions holds one History per client session and drawing key. Idle
// histories are swept after a TTL, and the least recently used one is
// evicted when a new history would exceed the entry cap.
type Sessions struct {
	entries    map[sessionKey]*entry
	now        func() time.Time
	done       chan struct{}
	limit      int
	maxEntries int
	ttl        time.Duration
	mu         sync.Mutex
	stop       sync.Once
}

// SessionsOption configures Sessions.
type SessionsOption func(*Sessions)

// WithMaxEntries caps the number of live histories. Values below one keep
// DefaultMaxEntries.
func WithMaxEntries(n int) SessionsOption {
	return func(s *Sessions) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// NewSessions creates a session map. Call Start to sweep idle entries in
// the background and Stop to end it.
func NewSessions(limit int, ttl time.Duration, opts ...SessionsOption) *Sessions {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Sessions{
		entries:    make(map[sessionKey]*entry),
		now:        time.Now,
		done:       make(chan struct{}),
		limit:      limit,
		maxEntries: DefaultMaxEntries,
		ttl:        ttl,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sessions) with(session, key string, create bool, fn func(*History) Result) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := sessionKey{session: session, key: key}
	e, ok := s.entries[k]
	if !ok {
		if !create {
			return Result{}
		}
		if len(s.entries) >= s.maxEntries {
			s.evictOldest()
		}
		e = &entry{history: New(s.limit)}
		s.entries[k] = e
	}
	e.lastUsed = s.now()

	r := fn(e.history)
	r.Undo, r.Redo = e.history.Depth()
	return r
}

// Push records a snapshot for session and key.
func (s *Sessions) Push(session, key, snapshot string) Result {
	return s.with(session, key, true, func(h *History) Result {
		h.Push(snapshot)
		return Result{OK: true}
	})
}

// Undo steps back from current.
func (s *Sessions) Undo(session, key, current string) Result {
	return s.with(session, key, false, func(h *History) Result {
		snap, ok := h.Undo(current)
		return Result{Snapshot: snap, OK: ok}
	})
}

// Redo steps forward from current.
func (s *Sessions) Redo(session, key, current string) Result {
	return s.with(session, key, false, func(h *History) Result {
		snap, ok := h.Redo(current)
		return Result{Snapshot: snap, OK: ok}
	})
}

// evictOldest removes the least recently used history. Callers hold mu.
func (s *Sessions) evictOldest() {
	var (
		oldest sessionKey
		at     time.Time
		found  bool
	)
	for k, e := range s.entries {
		if !found || e.lastUsed.Before(at) {
			oldest, at, found = k, e.lastUsed, true
		}
	}
	if found {
		delete(s.entries, oldest)
	}
}

// Forget drops every history stored under key, for all sessions.
func (s *Sessions) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if k.key == key {
			delete(s.entries, k)
		}
	}
}

// Len returns the number of live histories.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes histories idle for longer than the TTL and returns how many
// were removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for k, e := range s.entries {
		if e.lastUsed.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Start sweeps idle histories every interval until Stop is called.
func (s *Sessions) Start(interval time.Duration) {
	if interval <= 0 {
		interval = s.ttl / 2
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Stop ends background sweeping. It is safe to call more than once.
func (s *Sessions) Stop() {
	s.stop.Do(func() { close(s.done) })
}
