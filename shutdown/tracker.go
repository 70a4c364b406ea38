package shutdown

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrClosed is returned when work is refused because shutdown began.
	ErrClosed = errors.New("shutting down")

	ErrWaitTimeout = errors.New("in-flight operations did not finish in time")
)

// Tracker counts in-flight operations so shutdown can wait for them.
type Tracker struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	active atomic.Int64
	closed bool
}

// NewTracker returns an open tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Start registers an operation. It returns false once the tracker is
// closed; otherwise the caller must call Done.
func (t *Tracker) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.wg.Add(1)
	t.active.Add(1)
	return true
}

// Done marks an operation finished.
func (t *Tracker) Done() {
	t.active.Add(-1)
	t.wg.Done()
}

// Close refuses further operations. In-flight ones continue.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// Closed reports whether Close was called.
func (t *Tracker) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Active returns the number of in-flight operations.
func (t *Tracker) Active() int64 {
	return t.active.Load()
}

// Wait blocks until every operation is done or timeout passes.
func (t *Tracker) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrWaitTimeout
	}
}
