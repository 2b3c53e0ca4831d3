package actorhost

import "errors"

// ErrActorNotFound is returned when no handler is registered for the addressed actor.
var ErrActorNotFound = errors.New("actor not found")

// RejectError reports an envelope the host refused to hand to a handler.
type RejectError struct {
	Reason string
	Err    error
}

func (e *RejectError) Error() string {
	if e.Err != nil {
		return "rejected: " + e.Reason + ": " + e.Err.Error()
	}
	return "rejected: " + e.Reason
}

func (e *RejectError) Unwrap() error { return e.Err }

func reject(reason string, err error) *RejectError {
	return &RejectError{Reason: reason, Err: err}
}
