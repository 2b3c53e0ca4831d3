// Package actorhost is the receiving side of the dispatch path. It subscribes to every actor subject,
// checks each envelope and runs the handler registered for the addressed actor.
package actorhost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/actor-dispatch/pkg/commsutil"
	"github.com/morezero/actor-dispatch/pkg/db"
	"github.com/morezero/actor-dispatch/pkg/events"
	"github.com/morezero/actor-dispatch/pkg/invocation"
	"github.com/morezero/actor-dispatch/pkg/semver"
)

const logPrefix = "actorhost:host"

// DefaultQueueGroup lets several hosts share the actor subjects.
const DefaultQueueGroup = "actorhost"

// AuditSink records handled invocations. *db.Repository satisfies it.
type AuditSink interface {
	RecordInvocation(ctx context.Context, rec *db.InvocationRecord) error
}

// HostParams holds parameters for NewHost.
type HostParams struct {
	Conn *comms.Conn
	// TrustedIssuers restricts which host keys may sign invocations. Empty accepts any valid signature.
	TrustedIssuers []string
	// Versions is the accepted envelope version range; nil uses semver.DefaultAcceptRange.
	Versions *semver.Acceptor
	// Publisher and Audit are optional.
	Publisher events.EventPublisher
	Audit     AuditSink
	// HandlerTimeout bounds a single handler call; zero means no bound beyond the host's lifetime.
	HandlerTimeout time.Duration
	QueueGroup     string
}

// Host serves invocations for registered actors.
type Host struct {
	nc             *comms.Conn
	trusted        []string
	versions       *semver.Acceptor
	publisher      events.EventPublisher
	audit          AuditSink
	handlerTimeout time.Duration
	queue          string

	mu       sync.RWMutex
	handlers map[string]Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sub    *comms.Subscription
	stop   sync.Once
	// closed is guarded by mu; once set, onMessage no longer adds to wg.
	closed bool
}

// NewHost creates a Host. Call Register for each actor, then Start.
func NewHost(params HostParams) (*Host, error) {
	versions := params.Versions
	if versions == nil {
		var err error
		if versions, err = semver.NewAcceptor(semver.DefaultAcceptRange); err != nil {
			return nil, err
		}
	}
	publisher := params.Publisher
	if publisher == nil {
		publisher = &events.NoOpPublisher{}
	}
	queue := params.QueueGroup
	if queue == "" {
		queue = DefaultQueueGroup
	}
	trusted := make([]string, len(params.TrustedIssuers))
	copy(trusted, params.TrustedIssuers)

	ctx, cancel := context.WithCancel(context.Background())
	return &Host{
		nc:             params.Conn,
		trusted:        trusted,
		versions:       versions,
		publisher:      publisher,
		audit:          params.Audit,
		handlerTimeout: params.HandlerTimeout,
		queue:          queue,
		handlers:       make(map[string]Handler),
		ctx:            ctx,
		cancel:         cancel,
	}, nil
}

// Register binds handler to actorID, replacing any previous handler.
func (h *Host) Register(actorID string, handler Handler) error {
	if actorID == "" {
		return fmt.Errorf("%s - actor id is required", logPrefix)
	}
	if handler == nil {
		return fmt.Errorf("%s - handler for %s is nil", logPrefix, actorID)
	}
	h.mu.Lock()
	h.handlers[actorID] = handler
	h.mu.Unlock()
	slog.Info(fmt.Sprintf("%s - Registered actor %s", logPrefix, actorID))
	return nil
}

// Actors returns the number of registered actors.
func (h *Host) Actors() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

// Start subscribes to all actor subjects.
func (h *Host) Start() error {
	if h.nc == nil {
		return fmt.Errorf("%s - no COMMS connection", logPrefix)
	}
	sub, err := h.nc.QueueSubscribe(commsutil.SubjectActorWildcard, h.queue, h.onMessage)
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, commsutil.SubjectActorWildcard, err)
	}
	if err := h.nc.Flush(); err != nil {
		sub.Unsubscribe()
		return fmt.Errorf("%s - failed to flush subscription: %w", logPrefix, err)
	}
	h.sub = sub
	slog.Info(fmt.Sprintf("%s - Subscribed to %s (queue %s)", logPrefix, commsutil.SubjectActorWildcard, h.queue))
	return nil
}

// Stop unsubscribes, cancels running handlers and waits for in-flight replies. It is safe to call more than once.
func (h *Host) Stop() {
	h.stop.Do(func() {
		if h.sub != nil {
			if err := h.sub.Unsubscribe(); err != nil && !errors.Is(err, comms.ErrConnectionClosed) {
				slog.Warn(fmt.Sprintf("%s - unsubscribe: %v", logPrefix, err))
			}
		}
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()
		h.cancel()
		h.wg.Wait()
	})
}

func (h *Host) onMessage(msg *comms.Msg) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		slog.Debug(fmt.Sprintf("%s - Dropping message on %s, host stopped", logPrefix, msg.Subject))
		return
	}
	h.wg.Add(1)
	h.mu.RUnlock()
	go func() {
		defer h.wg.Done()
		resp := h.serve(msg.Subject, msg.Data)
		data, err := commsutil.EncodePayload(resp)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - failed to encode reply on %s: %v", logPrefix, msg.Subject, err))
			return
		}
		if err := msg.Respond(data); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to reply on %s: %v", logPrefix, msg.Subject, err))
		}
	}()
}

// serve decodes one request and always produces a reply.
func (h *Host) serve(subject string, data []byte) *invocation.Response {
	actorID, err := commsutil.ParseActorSubject(subject)
	if err != nil {
		return invocation.Failure(reject("bad subject", err).Error())
	}
	var inv invocation.Invocation
	if err := commsutil.DecodePayload(data, &inv); err != nil {
		return invocation.Failure(reject("malformed invocation", err).Error())
	}
	return h.Handle(h.ctx, actorID, &inv)
}

// Handle checks inv against the actor it was addressed to, runs the handler and reports the outcome.
func (h *Host) Handle(ctx context.Context, actorID string, inv *invocation.Invocation) *invocation.Response {
	start := time.Now()
	resp, outcome := h.handle(ctx, actorID, inv)
	h.record(ctx, actorID, inv, resp, outcome, time.Since(start))
	return resp
}

func (h *Host) handle(ctx context.Context, actorID string, inv *invocation.Invocation) (*invocation.Response, string) {
	if err := h.check(actorID, inv); err != nil {
		slog.Warn(fmt.Sprintf("%s - Rejected invocation %s for %s: %v", logPrefix, inv.ID, actorID, err))
		return invocation.Failure(err.Error()), events.OutcomeRejected
	}

	h.mu.RLock()
	handler, ok := h.handlers[actorID]
	h.mu.RUnlock()
	if !ok {
		return invocation.Failure(fmt.Sprintf("%v: %s", ErrActorNotFound, actorID)), events.OutcomeError
	}

	if h.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.handlerTimeout)
		defer cancel()
	}
	out, err := handler.HandleInvocation(ctx, inv.Operation, inv.Msg)
	if err != nil {
		slog.Debug(fmt.Sprintf("%s - Actor %s failed operation '%s': %v", logPrefix, actorID, inv.Operation, err))
		return invocation.Failure(err.Error()), events.OutcomeError
	}
	return invocation.Success(out), events.OutcomeOK
}

// check runs the envelope checks that precede any handler call.
func (h *Host) check(actorID string, inv *invocation.Invocation) error {
	if err := h.versions.Check(inv.Version); err != nil {
		return reject("unsupported envelope version", err)
	}
	if !inv.Target.IsActor() || inv.Target.ActorID() != actorID {
		return reject(fmt.Sprintf("target %s does not match subject actor %s", inv.Target, actorID), nil)
	}
	if !inv.Origin.IsCapability() {
		return reject(fmt.Sprintf("origin %s is not a capability provider", inv.Origin), nil)
	}
	if _, err := inv.Verify(h.trusted...); err != nil {
		return reject("invalid proof", err)
	}
	return nil
}

func (h *Host) record(ctx context.Context, actorID string, inv *invocation.Invocation, resp *invocation.Response, outcome string, elapsed time.Duration) {
	now := time.Now().UTC()
	event := &events.InvocationCompletedEvent{
		InvocationID: inv.ID,
		Origin:       inv.Origin.URL(),
		Target:       inv.Target.URL(),
		ActorID:      actorID,
		Operation:    inv.Operation,
		PayloadSize:  len(inv.Msg),
		Outcome:      outcome,
		Error:        resp.ErrorText(),
		DurationMs:   elapsed.Milliseconds(),
		Timestamp:    now.Format(time.RFC3339Nano),
	}
	if err := h.publisher.PublishCompleted(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish event for %s: %v", logPrefix, inv.ID, err))
	}

	if h.audit == nil || inv.ID == "" {
		return
	}
	rec := &db.InvocationRecord{
		InvocationID: inv.ID,
		Origin:       event.Origin,
		Target:       event.Target,
		ActorID:      actorID,
		Operation:    inv.Operation,
		PayloadSize:  len(inv.Msg),
		Outcome:      outcome,
		DurationMs:   event.DurationMs,
		Created:      now,
	}
	if resp.Failed() {
		text := resp.ErrorText()
		rec.ErrorText = &text
	}
	if err := h.audit.RecordInvocation(ctx, rec); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to record invocation %s: %v", logPrefix, inv.ID, err))
	}
}
