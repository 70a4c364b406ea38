// Package metrics records generation attempts for the /health summary and
// the Prometheus /metrics endpoint.
package metrics

import "time"

// Outcome labels for a finished attempt.
const (
	OutcomeRendered     = "rendered"
	OutcomeMissingInput = "missing_input"
	OutcomeDecode       = "decode_failure"
	OutcomePipeline     = "pipeline_failure"
	OutcomePersistence  = "persistence_failure"
)

// AttemptRecord is one finished Generate press.
type AttemptRecord struct {
	ID        string        `json:"id"`
	Variant   string        `json:"variant"`
	Outcome   string        `json:"outcome"`
	Seed      int64         `json:"seed"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	ErrorMsg  string        `json:"error_msg,omitempty"`
}

// Summary aggregates every attempt since startup.
type Summary struct {
	Total     int64            `json:"total"`
	Rendered  int64            `json:"rendered"`
	Failed    int64            `json:"failed"`
	Refused   int64            `json:"refused"`
	InFlight  int64            `json:"in_flight"`
	ByOutcome map[string]int64 `json:"by_outcome"`

	// AvgRenderDuration averages rendered attempts only.
	AvgRenderDuration time.Duration `json:"avg_render_duration"`

	Version string        `json:"version"`
	Uptime  time.Duration `json:"uptime"`
}
