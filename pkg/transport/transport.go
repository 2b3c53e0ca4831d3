// Package transport carries invocations over COMMS (NATS) request/reply.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/actor-dispatch/pkg/commsutil"
	"github.com/morezero/actor-dispatch/pkg/invocation"
)

const logPrefix = "transport:comms"

// DefaultTimeout bounds a request when neither the caller's context nor the options set a deadline.
const DefaultTimeout = 2 * time.Second

// ErrNoActor is wrapped when no actor host is subscribed to the target subject.
var ErrNoActor = errors.New("no actor host is listening")

// TimeoutError reports that a reply did not arrive in time.
type TimeoutError struct {
	Subject string
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s - request to %s timed out: %v", logPrefix, e.Subject, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Timeout marks the error as a timeout for callers that test for it.
func (e *TimeoutError) Timeout() bool { return true }

// CommsTransportOpts configures CommsTransport. Nil or zero values use defaults.
type CommsTransportOpts struct {
	// Timeout is applied when the caller's context has no deadline.
	Timeout time.Duration
}

// CommsTransport sends JSON-encoded invocations with NATS request/reply.
// It is safe for concurrent use; *comms.Conn multiplexes replies on a single inbox.
type CommsTransport struct {
	nc      *comms.Conn
	timeout time.Duration
}

// NewCommsTransport creates a CommsTransport on an established connection. Pass nil for opts to use defaults.
func NewCommsTransport(nc *comms.Conn, opts *CommsTransportOpts) *CommsTransport {
	timeout := DefaultTimeout
	if opts != nil && opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	return &CommsTransport{nc: nc, timeout: timeout}
}

// Invoke publishes inv on subject and waits for the actor host's reply.
func (t *CommsTransport) Invoke(ctx context.Context, subject string, inv *invocation.Invocation) (*invocation.Response, error) {
	data, err := commsutil.EncodePayload(inv)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode invocation %s: %w", logPrefix, inv.ID, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	msg, err := t.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		switch {
		case errors.Is(err, comms.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
			return nil, &TimeoutError{Subject: subject, Err: err}
		case errors.Is(err, comms.ErrNoResponders):
			return nil, fmt.Errorf("%s - %w on %s: %w", logPrefix, ErrNoActor, subject, err)
		default:
			return nil, fmt.Errorf("%s - request to %s failed: %w", logPrefix, subject, err)
		}
	}

	var resp invocation.Response
	if err := commsutil.DecodePayload(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("%s - failed to decode reply to %s: %w", logPrefix, inv.ID, err)
	}
	slog.Debug(fmt.Sprintf("%s - Reply for %s on %s (%d bytes, failed=%v)", logPrefix, inv.ID, subject, len(resp.Msg), resp.Failed()))
	return &resp, nil
}
