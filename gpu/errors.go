package gpu

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies the errors returned by this package.
type ErrorKind int

const (
	// ResourceCreationError is returned when a stream or library handle can't be created.
	// It is fatal to the current operation and it is not retried.
	ResourceCreationError ErrorKind = iota + 1

	// DeviceSynchronizationError is returned when a blocking wait reports a device-side failure.
	DeviceSynchronizationError

	// DeviceQueryError is returned when a non-blocking status query returns an unexpected status.
	DeviceQueryError

	// InvalidArgument is returned for invalid inputs: nil events, out-of-range devices, ranks or stream ids.
	InvalidArgument
)

// Error is the error type returned by this package. Use errors.Is with one of the
// Err* sentinels to test for its kind; the vendor error that caused it, if any, is returned by Unwrap.
type Error struct {
	Kind ErrorKind

	// Op describes the operation that failed.
	Op string

	// Err is the underlying cause, typically reported by the Platform. It may be nil.
	Err error
}

// Sentinels matching any Error of the corresponding kind with errors.Is.
var (
	ErrResourceCreation      = &Error{Kind: ResourceCreationError}
	ErrDeviceSynchronization = &Error{Kind: DeviceSynchronizationError}
	ErrDeviceQuery           = &Error{Kind: DeviceQueryError}
	ErrInvalidArgument       = &Error{Kind: InvalidArgument}
)

// ErrNotReady must be returned (possibly wrapped) by Driver.StreamQuery when the stream still has pending work.
var ErrNotReady = errors.New("device not ready")

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause of the error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// newError creates an Error of the given kind with a stack trace (see github.com/pkg/errors).
func newError(kind ErrorKind, cause error, format string, args ...any) error {
	return errors.WithStack(&Error{Kind: kind, Op: fmt.Sprintf(format, args...), Err: cause})
}

func invalidArgf(format string, args ...any) error {
	return newError(InvalidArgument, nil, format, args...)
}
