package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// Business error taxonomy. Callers wrap these with fmt.Errorf("%w: ...") and
// match with errors.Is at the HTTP boundary.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateOperation is logged and treated as a benign no-op by the
	// posting workflows; it must never be surfaced to callers as a failure.
	ErrDuplicateOperation = errors.New("duplicate operation")
)

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
