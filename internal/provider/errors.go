package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a remote tagging failure.
type ErrorKind string

const (
	// KindUnsupported means tagging is not applicable to this resource.
	// Callers treat it as a terminal state, not a failure.
	KindUnsupported ErrorKind = "unsupported"
	// KindNotFound means the resource vanished between discovery and
	// the call.
	KindNotFound ErrorKind = "not_found"
	// KindPermissionDenied is a terminal authorization failure.
	KindPermissionDenied ErrorKind = "permission_denied"
	// KindThrottled is a rate-limit signal; callers may retry.
	KindThrottled ErrorKind = "throttled"
	// KindTransient covers timeouts and 5xx-equivalent failures;
	// callers may retry.
	KindTransient ErrorKind = "transient"
	// KindOther is any other classified remote error.
	KindOther ErrorKind = "other"
)

// Error is a typed remote failure carrying the operation and resource
// it occurred on.
type Error struct {
	Kind       ErrorKind
	Op         string
	ResourceID string
	Err        error
}

func (e *Error) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.ResourceID, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a typed provider error.
func NewError(kind ErrorKind, op, resourceID string, err error) *Error {
	return &Error{Kind: kind, Op: op, ResourceID: resourceID, Err: err}
}

// KindOf extracts the error kind, or KindOther for untyped errors.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindOther
}

// IsUnsupported reports whether err marks tagging as not applicable.
func IsUnsupported(err error) bool { return is(err, KindUnsupported) }

// IsNotFound reports whether err marks a vanished resource.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// IsPermissionDenied reports whether err is an authorization failure.
func IsPermissionDenied(err error) bool { return is(err, KindPermissionDenied) }

// IsThrottled reports whether err is a rate-limit signal.
func IsThrottled(err error) bool { return is(err, KindThrottled) }

// IsRetryable reports whether err is worth retrying: throttling or a
// transient remote fault.
func IsRetryable(err error) bool {
	k := KindOf(err)
	return k == KindThrottled || k == KindTransient
}

func is(err error, kind ErrorKind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}
