// Package invocation builds and verifies the signed, addressed envelopes a capability provider sends to an actor.
package invocation

import "github.com/morezero/actor-dispatch/pkg/entity"

// EnvelopeVersion is the format version stamped on every envelope built by New.
const EnvelopeVersion = "1.0.0"

// Invocation is one signed request from a capability provider to an actor.
// It is built fresh by New for every dispatch and must not be modified afterwards.
type Invocation struct {
	ID        string        `json:"id"`
	Version   string        `json:"version"`
	Origin    entity.Entity `json:"origin"`
	Target    entity.Entity `json:"target"`
	Operation string        `json:"operation"`
	Msg       []byte        `json:"msg"`
	// Proof is the host-signed token binding the fields above.
	Proof string `json:"proof"`
}

// Response is an actor's reply to an Invocation.
// A non-nil Error means the actor ran and reported failure, even when the text is empty.
type Response struct {
	Msg   []byte  `json:"msg"`
	Error *string `json:"error,omitempty"`
}

// Success builds a reply carrying msg.
func Success(msg []byte) *Response {
	return &Response{Msg: msg}
}

// Failure builds a reply reporting an application-level failure.
func Failure(text string) *Response {
	return &Response{Msg: []byte{}, Error: &text}
}

// Failed reports whether the actor reported a failure.
func (r *Response) Failed() bool {
	return r != nil && r.Error != nil
}

// ErrorText returns the reported failure text, or "" when the reply succeeded.
func (r *Response) ErrorText() string {
	if !r.Failed() {
		return ""
	}
	return *r.Error
}
