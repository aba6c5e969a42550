package slot

import (
	"fmt"
	"runtime/debug"
)

// NotFoundError is returned when a required lookup finds no ancestor slot.
type NotFoundError struct {
	Tag TypeTag
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no ancestor slot found for %s", e.Tag)
}

// MisconfiguredAttachmentError describes a programmer error detected at
// attachment construction time. It is raised via panic, never returned:
// a misconfigured attachment must fail fast, not be silently coerced.
type MisconfiguredAttachmentError struct {
	Reason     string
	StackTrace []byte
}

func (e *MisconfiguredAttachmentError) Error() string {
	return "misconfigured attachment: " + e.Reason
}

func misconfigured(reason string) *MisconfiguredAttachmentError {
	return &MisconfiguredAttachmentError{
		Reason:     reason,
		StackTrace: debug.Stack(),
	}
}

// CodecMissingError is returned when a broadcast round-trip is requested
// for a type with no registered codec.
type CodecMissingError struct {
	Tag TypeTag
}

func (e *CodecMissingError) Error() string {
	return fmt.Sprintf("no codec registered for %s", e.Tag)
}

// DecodeError is returned for a malformed wire value.
type DecodeError struct {
	Wire  string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %q: %v", e.Wire, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// AsyncError wraps a failure of a one-shot computation or of the decode
// path feeding an adapter.
type AsyncError struct {
	Cause error
}

func (e *AsyncError) Error() string {
	return fmt.Sprintf("async source failed: %v", e.Cause)
}

func (e *AsyncError) Unwrap() error {
	return e.Cause
}

// SafeTypeAssertion performs safe type assertion with proper error
func SafeTypeAssertion[T any](value any) (T, error) {
	if value == nil {
		var zero T
		return zero, nil
	}

	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("type assertion error: expected %T, got %T (value: %v)", zero, value, value)
	}

	return typed, nil
}
