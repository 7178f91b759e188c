package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation bad input (empty file, wrong content type, too large)
	ErrValidation = errors.New("validation error")
	// ErrForbidden animal is not owned by the caller (or does not exist)
	ErrForbidden = errors.New("animal not owned by caller")
	// ErrNotFound record missing or owned by someone else; the two are not distinguished
	ErrNotFound = errors.New("analysis not found")
)

// Invalid wraps ErrValidation with a reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// InferenceErrorKind classifies provider failures. Callers must not conflate them.
type InferenceErrorKind string

const (
	// KindUnavailable transport failure, timeout, cancellation, gateway 5xx
	KindUnavailable InferenceErrorKind = "unavailable"
	// KindProvider provider answered but reported an internal error
	KindProvider InferenceErrorKind = "provider"
	// KindMalformed body could not be parsed as a JSON object
	KindMalformed InferenceErrorKind = "malformed"
)

// InferenceError is returned by every Inferrer implementation.
type InferenceError struct {
	Kind    InferenceErrorKind
	Message string
	Err     error
}

func (e *InferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inference %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("inference %s: %s", e.Kind, e.Message)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// IsInferenceKind reports whether err is an InferenceError of the given kind.
func IsInferenceKind(err error, kind InferenceErrorKind) bool {
	var ie *InferenceError
	return errors.As(err, &ie) && ie.Kind == kind
}
