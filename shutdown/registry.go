package shutdown

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Func is a cleanup step run during shutdown. It should honour ctx.
type Func func(ctx context.Context) error

type entry struct {
	name     string
	priority int // lower runs earlier
	fn       Func
}

// Registry holds cleanup steps and runs them once, in priority order.
// Steps with equal priority run in registration order.
type Registry struct {
	mu      sync.Mutex
	entries []entry
	closed  bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a step. Registrations after Run are ignored.
func (r *Registry) Register(name string, priority int, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.entries = append(r.entries, entry{name: name, priority: priority, fn: fn})
}

func (r *Registry) sorted() []entry {
	out := make([]entry, len(r.entries))
	copy(out, r.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].priority < out[j].priority
	})
	return out
}

// Run executes every step, continuing past failures, and returns the
// failures labelled with the step name. Only the first call does anything.
func (r *Registry) Run(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	steps := r.sorted()
	r.mu.Unlock()

	var errs []error
	for _, e := range steps {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errs
}

// Names lists the steps in execution order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	steps := r.sorted()
	names := make([]string, len(steps))
	for i, e := range steps {
		names[i] = e.name
	}
	return names
}
