// Package dispatcher sends operations from a capability provider to actors and normalizes their replies.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/morezero/actor-dispatch/pkg/commsutil"
	"github.com/morezero/actor-dispatch/pkg/entity"
	"github.com/morezero/actor-dispatch/pkg/invocation"
)

const logPrefix = "dispatcher:dispatch"

// probeInput is signed once at construction to prove the signer is usable.
var probeInput = []byte("actor-dispatch signer probe")

// Dispatcher is handed to one capability provider instance (capability id + binding).
// All fields are fixed at construction, so a single Dispatcher may be shared by any number of goroutines.
type Dispatcher struct {
	origin    entity.Entity
	signer    invocation.Signer
	transport Transport
}

// NewParams holds parameters for New.
type NewParams struct {
	CapabilityID string
	Binding      string
	Signer       invocation.Signer
	Transport    Transport
}

// New creates a Dispatcher. A signer that cannot produce a public key or a signature is a fatal
// misconfiguration and fails construction.
func New(params NewParams) (*Dispatcher, error) {
	origin := entity.NewCapability(params.CapabilityID, params.Binding)
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("%s - invalid provider identity: %w", logPrefix, err)
	}
	if params.Transport == nil {
		return nil, fmt.Errorf("%s - transport is required", logPrefix)
	}
	if params.Signer == nil {
		return nil, fmt.Errorf("%s - signer is required", logPrefix)
	}
	if _, err := params.Signer.PublicKey(); err != nil {
		return nil, fmt.Errorf("%s - %w: public key unavailable: %v", logPrefix, invocation.ErrSigning, err)
	}
	if _, err := params.Signer.Sign(probeInput); err != nil {
		return nil, fmt.Errorf("%s - %w: %v", logPrefix, invocation.ErrSigning, err)
	}

	return &Dispatcher{
		origin:    origin,
		signer:    params.Signer,
		transport: params.Transport,
	}, nil
}

// Origin returns the capability entity stamped on every invocation.
func (d *Dispatcher) Origin() entity.Entity { return d.origin }

// Dispatch invokes operation on the actor with the given id and blocks until the transport returns.
// Errors are always *DispatchError: KindTransport when the call never reached an answer (timeouts
// included) and KindApplication when the actor reported failure.
func (d *Dispatcher) Dispatch(ctx context.Context, actorID, operation string, payload []byte) ([]byte, error) {
	target := entity.NewActor(actorID)

	inv, err := invocation.New(d.signer, d.origin, target, operation, payload)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to sign invocation for %s: %v", logPrefix, target, err))
		return nil, transportError(err)
	}

	subject := commsutil.ActorSubject(actorID)
	slog.Debug(fmt.Sprintf("%s - Dispatching operation '%s' (%d bytes) to %s id=%s", logPrefix, operation, len(payload), target, inv.ID))

	resp, err := d.transport.Invoke(ctx, subject, inv)
	if err != nil {
		return nil, transportError(err)
	}
	if resp == nil {
		return nil, transportError(ErrEmptyResponse)
	}
	if resp.Failed() {
		return nil, applicationError(resp.ErrorText())
	}
	return resp.Msg, nil
}

// Func adapts a dispatch function, e.g. a method value of *Dispatcher, to interfaces that
// take a single Dispatch method.
type Func func(ctx context.Context, actorID, operation string, payload []byte) ([]byte, error)

// Dispatch calls f.
func (f Func) Dispatch(ctx context.Context, actorID, operation string, payload []byte) ([]byte, error) {
	return f(ctx, actorID, operation, payload)
}

// IsTimeout reports whether a transport-kind error was caused by a deadline.
func IsTimeout(err error) bool {
	if !IsTransport(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
