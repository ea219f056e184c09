package pipeline

import (
	"sync"

	"github.com/vaeringr/cdsp/internal/graph"
)

// ReloadSlot is the mutex-guarded handoff point for a pending graph
// reload: the control surface writes a new step list, and the process
// worker drains it between chunks and applies it via graph.Graph.Reload,
// per spec.md §4.3's hot-reload protocol ("P checks the flag between
// chunks").
type ReloadSlot struct {
	mu      sync.Mutex
	steps   []graph.Step
	pending bool
}

// Request marks steps as the next configuration to install.
func (r *ReloadSlot) Request(steps []graph.Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = steps
	r.pending = true
}

// TakeIfPending atomically clears and returns a pending request, if any.
func (r *ReloadSlot) TakeIfPending() ([]graph.Step, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.pending {
		return nil, false
	}
	r.pending = false
	steps := r.steps
	r.steps = nil
	return steps, true
}
