package metrics

import (
	"sync"
	"time"
)

// Store keeps aggregate counters and a bounded history of recent attempts
// in memory.
//
// Usage:
//
//	store := NewStore(StoreConfig{HistoryCapacity: 50, Version: core.Version}, time.Now())
//	store.GenerationStarted()
//	store.GenerationFinished(rec)
//	summary := store.Summary()
type Store struct {
	mu sync.RWMutex

	// ring buffer of recent attempts
	history []AttemptRecord
	head    int
	size    int

	total       int64
	rendered    int64
	refused     int64
	inFlight    int64
	byOutcome   map[string]int64
	renderTotal time.Duration

	startTime time.Time
	version   string
}

// StoreConfig configures a Store.
type StoreConfig struct {
	HistoryCapacity int
	Version         string
}

// DefaultStoreConfig returns the default configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{HistoryCapacity: 50, Version: "dev"}
}

// NewStore creates a Store. startTime is used for uptime.
func NewStore(cfg StoreConfig, startTime time.Time) *Store {
	capacity := cfg.HistoryCapacity
	if capacity < 1 {
		capacity = DefaultStoreConfig().HistoryCapacity
	}
	return &Store{
		history:   make([]AttemptRecord, capacity),
		byOutcome: make(map[string]int64),
		startTime: startTime,
		version:   cfg.Version,
	}
}

// GenerationStarted implements Recorder.
func (s *Store) GenerationStarted() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
}

// GenerationFinished implements Recorder.
func (s *Store) GenerationFinished(rec AttemptRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight > 0 {
		s.inFlight--
	}

	s.history[s.head] = rec
	s.head = (s.head + 1) % len(s.history)
	if s.size < len(s.history) {
		s.size++
	}

	s.total++
	s.byOutcome[rec.Outcome]++
	if rec.Outcome == OutcomeRendered {
		s.rendered++
		s.renderTotal += rec.Duration
	}
}

// GenerationRefused implements Recorder.
func (s *Store) GenerationRefused() {
	s.mu.Lock()
	s.refused++
	s.mu.Unlock()
}

// Summary returns the aggregate counters.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byOutcome := make(map[string]int64, len(s.byOutcome))
	for k, v := range s.byOutcome {
		byOutcome[k] = v
	}

	var avg time.Duration
	if s.rendered > 0 {
		avg = s.renderTotal / time.Duration(s.rendered)
	}

	return Summary{
		Total:             s.total,
		Rendered:          s.rendered,
		Failed:            s.total - s.rendered,
		Refused:           s.refused,
		InFlight:          s.inFlight,
		ByOutcome:         byOutcome,
		AvgRenderDuration: avg,
		Version:           s.version,
		Uptime:            time.Since(s.startTime),
	}
}

// Recent returns up to limit records, oldest first.
func (s *Store) Recent(limit int) []AttemptRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.size == 0 {
		return []AttemptRecord{}
	}
	if limit > s.size {
		limit = s.size
	}

	n := len(s.history)
	out := make([]AttemptRecord, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.history[(s.head-limit+i+n)%n]
	}
	return out
}

var _ Recorder = (*Store)(nil)
