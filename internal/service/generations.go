package service

import "sync"

// Generation identifies one request within a scope.
type Generation struct {
	scope string
	seq   uint64
}

// Generations hands out request-generation tokens per scope. Starting a
// request supersedes every earlier request in the same scope, so a slow
// reply can be recognized and dropped when a newer one was issued.
type Generations struct {
	current map[string]uint64
	next    uint64
	mu      sync.Mutex
}

// NewGenerations returns an empty tracker.
func NewGenerations() *Generations {
	return &Generations{current: make(map[string]uint64)}
}

// Begin starts a new request in scope.
func (g *Generations) Begin(scope string) Generation {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	g.current[scope] = g.next
	return Generation{scope: scope, seq: g.next}
}

// Current reports whether gen is still the latest request of its scope.
func (g *Generations) Current(gen Generation) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current[gen.scope] == gen.seq
}

// Finish forgets the scope if gen is still its latest request. Sequence
// numbers are never reused, so a forgotten scope cannot revive an older
// request.
func (g *Generations) Finish(gen Generation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current[gen.scope] == gen.seq {
		delete(g.current, gen.scope)
	}
}
