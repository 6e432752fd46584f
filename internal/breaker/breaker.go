// Package breaker counts recovery attempts per target and reports when a
// target has used up its budget.
package breaker

import (
	"errors"
	"sort"
	"sync"
)

// ErrCircuitOpen is returned by callers that refuse to retry a tripped
// target.
var ErrCircuitOpen = errors.New("circuit open: manual intervention required")

// Breaker is an additive per-target attempt counter. Counts never decrease.
// The zero value is ready to use.
type Breaker struct {
	mu     sync.Mutex
	counts map[string]int
}

// New returns an empty breaker.
func New() *Breaker {
	return &Breaker{counts: make(map[string]int)}
}

// RecordAttempt increments the target's count and returns the new value.
func (b *Breaker) RecordAttempt(target string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.counts == nil {
		b.counts = make(map[string]int)
	}
	b.counts[target]++
	return b.counts[target]
}

// Count returns the attempts recorded for target.
func (b *Breaker) Count(target string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[target]
}

// HasTripped reports whether target has reached threshold attempts.
func (b *Breaker) HasTripped(target string, threshold int) bool {
	return b.Count(target) >= threshold
}

// Snapshot returns a copy of every count, keyed by target.
func (b *Breaker) Snapshot() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int, len(b.counts))
	for k, v := range b.counts {
		out[k] = v
	}
	return out
}

// Targets returns the known targets in sorted order.
func (b *Breaker) Targets() []string {
	snap := b.Snapshot()
	out := make([]string, 0, len(snap))
	for k := range snap {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
