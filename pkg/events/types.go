// Package events defines invocation events and publisher interfaces for the actor host.
package events

// Outcomes recorded for a handled invocation.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// InvocationCompletedEvent is emitted by the actor host after it replies to an invocation.
// It carries envelope metadata only, never payload contents or proofs.
type InvocationCompletedEvent struct {
	InvocationID string `json:"invocationId"`
	Origin       string `json:"origin"`
	Target       string `json:"target"`
	ActorID      string `json:"actorId"`
	Operation    string `json:"operation"`
	PayloadSize  int    `json:"payloadSize"`
	Outcome      string `json:"outcome"`
	Error        string `json:"error,omitempty"`
	DurationMs   int64  `json:"durationMs"`
	Timestamp    string `json:"timestamp"`
}
