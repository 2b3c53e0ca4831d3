package dispatcher

import (
	"context"

	"github.com/morezero/actor-dispatch/pkg/invocation"
)

//go:generate mockgen -destination=mocks/mock_transport.go -package=mocks github.com/morezero/actor-dispatch/pkg/dispatcher Transport

// Transport delivers an invocation to the actor host listening on subject and waits for its reply.
// Implementations own timeouts and retries; a timeout is reported like any other transport error.
type Transport interface {
	Invoke(ctx context.Context, subject string, inv *invocation.Invocation) (*invocation.Response, error)
}
