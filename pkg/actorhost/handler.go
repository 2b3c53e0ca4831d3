package actorhost

import (
	"context"
	"fmt"

	"github.com/morezero/actor-dispatch/pkg/manifest"
)

// Handler runs one operation for an actor. A returned error is reported to the caller as an
// application failure with err.Error() as its text.
type Handler interface {
	HandleInvocation(ctx context.Context, operation string, payload []byte) ([]byte, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, operation string, payload []byte) ([]byte, error)

// HandleInvocation calls f.
func (f HandlerFunc) HandleInvocation(ctx context.Context, operation string, payload []byte) ([]byte, error) {
	return f(ctx, operation, payload)
}

// Echo returns the payload unchanged.
var Echo = HandlerFunc(func(_ context.Context, _ string, payload []byte) ([]byte, error) {
	return payload, nil
})

// Operation returns the name of the operation it was asked to run.
var Operation = HandlerFunc(func(_ context.Context, operation string, _ []byte) ([]byte, error) {
	return []byte(operation), nil
})

// BuiltinHandler returns the handler a manifest refers to by name.
func BuiltinHandler(name string) (Handler, error) {
	switch name {
	case manifest.HandlerEcho:
		return Echo, nil
	case manifest.HandlerOperation:
		return Operation, nil
	default:
		return nil, fmt.Errorf("%s - unknown handler %q", logPrefix, name)
	}
}

// RegisterManifest registers a built-in handler for every actor in m.
func (h *Host) RegisterManifest(m *manifest.Manifest) error {
	for _, a := range m.Actors {
		handler, err := BuiltinHandler(a.Handler)
		if err != nil {
			return err
		}
		if err := h.Register(a.ID, handler); err != nil {
			return err
		}
	}
	return nil
}
