// Package schederr classifies the scheduler's failure modes so the
// lifecycle controller can decide, by category alone, whether to log and
// drop, log and continue, or exit.
package schederr

import "fmt"

// Kind classifies an error by how the controller should react to it.
type Kind string

const (
	// KindFatal is a startup failure (socket create/bind). The process
	// must log and exit with a non-zero status.
	KindFatal Kind = "fatal"

	// KindTransport is a Receive/Send failure at the socket layer.
	KindTransport Kind = "transport"

	// KindProtocol is a truncated, oversized, or otherwise malformed
	// packet. Log, drop, continue.
	KindProtocol Kind = "protocol"

	// KindUnknownRuntime is a packet referencing a runtime id the
	// registry has never seen. Log, drop, continue.
	KindUnknownRuntime Kind = "unknown_runtime"

	// KindSend is a failure writing a reply datagram back to a runtime.
	// Log and continue; the runtime will retry.
	KindSend Kind = "send"
)

// Error wraps an underlying cause with the Kind the controller needs to
// decide how to react, plus enough context to log usefully.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an Error of the given kind around cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Is reports whether err is a schederr.Error of kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if se, ok := err.(*Error); ok {
			e = se
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
