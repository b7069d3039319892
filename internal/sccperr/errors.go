// Package sccperr defines the error taxonomy shared by the codec, the session
// layer and the device/channel state machines.
package sccperr

import (
	"errors"
	"fmt"
)

// Kind represents the category of error that occurred
type Kind int

const (
	// KindCodec indicates a malformed or oversized frame. Fatal to the session.
	KindCodec Kind = iota
	// KindProtocolViolation indicates a message that is not valid in the
	// current session or device state. Fatal to the session.
	KindProtocolViolation
	// KindUnrecognized indicates an unknown message id. Logged and ignored.
	KindUnrecognized
	// KindStateTransitionRejected indicates a message that is valid for the
	// protocol but not for the current channel or device state.
	KindStateTransitionRejected
	// KindResourceExhausted indicates an allocation failure (no free channel,
	// call id or line instance).
	KindResourceExhausted
	// KindAclDenied indicates that a peer address was refused by a permit/deny list.
	KindAclDenied
	// KindConfig indicates an invalid configuration.
	KindConfig
)

// String returns a human-readable name for the error kind
func (k Kind) String() string {
	switch k {
	case KindCodec:
		return "Codec Error"
	case KindProtocolViolation:
		return "Protocol Violation"
	case KindUnrecognized:
		return "Unrecognized Message"
	case KindStateTransitionRejected:
		return "State Transition Rejected"
	case KindResourceExhausted:
		return "Resource Exhausted"
	case KindAclDenied:
		return "ACL Denied"
	case KindConfig:
		return "Configuration Error"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Error is the concrete error type carried through the core.
type Error struct {
	Kind    Kind   // Category of error
	Op      string // Operation that failed, e.g. "decode" or "register"
	Message string // Human-readable detail
	Err     error  // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindCodec})
// works without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

func newError(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Codec creates a codec error.
func Codec(op, format string, args ...interface{}) *Error {
	return newError(KindCodec, op, format, args...)
}

// ProtocolViolation creates a protocol violation error.
func ProtocolViolation(op, format string, args ...interface{}) *Error {
	return newError(KindProtocolViolation, op, format, args...)
}

// Unrecognized creates an unrecognized-message error.
func Unrecognized(op string, id uint32) *Error {
	return newError(KindUnrecognized, op, "unknown message id 0x%04X", id)
}

// Rejected creates a state transition rejection.
func Rejected(op, format string, args ...interface{}) *Error {
	return newError(KindStateTransitionRejected, op, format, args...)
}

// Exhausted creates a resource exhaustion error.
func Exhausted(op, format string, args ...interface{}) *Error {
	return newError(KindResourceExhausted, op, format, args...)
}

// AclDenied creates an access control error.
func AclDenied(op, format string, args ...interface{}) *Error {
	return newError(KindAclDenied, op, format, args...)
}

// Config creates a configuration error wrapping err.
func Config(op string, err error, format string, args ...interface{}) *Error {
	e := newError(KindConfig, op, format, args...)
	e.Err = err
	return e
}

// Wrap attaches err as the cause of a new error of the given kind.
func Wrap(kind Kind, op string, err error, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsCodec reports whether err is a codec error
func IsCodec(err error) bool { return is(err, KindCodec) }

// IsProtocolViolation reports whether err is a protocol violation
func IsProtocolViolation(err error) bool { return is(err, KindProtocolViolation) }

// IsUnrecognized reports whether err is an unrecognized message
func IsUnrecognized(err error) bool { return is(err, KindUnrecognized) }

// IsRejected reports whether err is a rejected state transition
func IsRejected(err error) bool { return is(err, KindStateTransitionRejected) }

// IsExhausted reports whether err is a resource exhaustion
func IsExhausted(err error) bool { return is(err, KindResourceExhausted) }

// IsAclDenied reports whether err is an ACL denial
func IsAclDenied(err error) bool { return is(err, KindAclDenied) }

// IsConfig reports whether err is a configuration error
func IsConfig(err error) bool { return is(err, KindConfig) }

// Fatal reports whether err must terminate the session that produced it.
// Errors outside the taxonomy (socket I/O) are fatal too.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	k, ok := KindOf(err)
	if !ok {
		return true
	}
	switch k {
	case KindCodec, KindProtocolViolation, KindAclDenied:
		return true
	default:
		return false
	}
}
