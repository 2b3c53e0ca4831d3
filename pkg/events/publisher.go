package events

import "context"

// EventPublisher publishes invocation events.
type EventPublisher interface {
	PublishCompleted(ctx context.Context, event *InvocationCompletedEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing.
type NoOpPublisher struct{}

// PublishCompleted is a no-op.
func (p *NoOpPublisher) PublishCompleted(_ context.Context, _ *InvocationCompletedEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *InvocationCompletedEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *InvocationCompletedEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishCompleted calls the callback.
func (p *CallbackPublisher) PublishCompleted(ctx context.Context, event *InvocationCompletedEvent) error {
	return p.callback(ctx, event)
}
