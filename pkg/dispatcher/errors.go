package dispatcher

import (
	"errors"
	"fmt"
)

// Kind tells callers whether an invocation reached the actor.
type Kind int

const (
	// KindTransport means the invocation never produced an application-level answer.
	KindTransport Kind = iota + 1
	// KindApplication means the actor ran and reported failure.
	KindApplication
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindApplication:
		return "application"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrApplication is wrapped by every KindApplication error.
	ErrApplication = errors.New("actor reported failure")
	// ErrEmptyResponse is reported when a transport returns neither a reply nor an error.
	ErrEmptyResponse = errors.New("transport returned no response")
)

// DispatchError is the only error type returned by Dispatch.
type DispatchError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *DispatchError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String() + " error"
}

func (e *DispatchError) Unwrap() error { return e.Err }

func transportError(err error) *DispatchError {
	return &DispatchError{
		Kind:    KindTransport,
		Message: fmt.Sprintf("invocation transport failure: %v", err),
		Err:     err,
	}
}

func applicationError(text string) *DispatchError {
	return &DispatchError{
		Kind:    KindApplication,
		Message: fmt.Sprintf("invocation failure: %s", text),
		Err:     fmt.Errorf("%w: %s", ErrApplication, text),
	}
}

// KindOf returns the kind of a dispatch error, or 0 when err is not one.
func KindOf(err error) Kind {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// IsTransport reports whether err is a transport-kind DispatchError.
func IsTransport(err error) bool { return KindOf(err) == KindTransport }

// IsApplication reports whether err is an application-kind DispatchError.
func IsApplication(err error) bool { return KindOf(err) == KindApplication }
