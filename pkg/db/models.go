package db

import "time"

// InvocationRecord is a row in the invocation_log table.
type InvocationRecord struct {
	InvocationID string    `json:"invocation_id"`
	Origin       string    `json:"origin"`
	Target       string    `json:"target"`
	ActorID      string    `json:"actor_id"`
	Operation    string    `json:"operation"`
	PayloadSize  int       `json:"payload_size"`
	Outcome      string    `json:"outcome"`
	ErrorText    *string   `json:"error_text,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	Created      time.Time `json:"created"`
}

// OutcomeCount is one row of CountByOutcome.
type OutcomeCount struct {
	Outcome string `json:"outcome"`
	Count   int    `json:"count"`
}
