package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder composes an error with a user facing hint, reportable details and a sentinel mark.
//
//	ierr.NewError("amount must be positive").
//		WithHint("Payment amount must be greater than zero").
//		WithReportableDetails(map[string]interface{}{"amount": amount}).
//		Mark(ierr.ErrInvalidAmount)
type ErrorBuilder struct {
	err error
}

func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.NewWithDepth(1, msg)}
}

func NewErrorf(format string, args ...interface{}) *ErrorBuilder {
	return &ErrorBuilder{err: errors.NewWithDepthf(1, format, args...)}
}

// WithError starts a builder from an existing error, typically one returned by a driver
func WithError(err error) *ErrorBuilder {
	if err == nil {
		err = errors.NewWithDepth(1, "unknown error")
	}
	return &ErrorBuilder{err: err}
}

func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.WithMessage(b.err, msg)
	return b
}

func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

func (b *ErrorBuilder) WithHintf(format string, args ...interface{}) *ErrorBuilder {
	b.err = errors.WithHint(b.err, fmt.Sprintf(format, args...))
	return b
}

func (b *ErrorBuilder) WithReportableDetails(details map[string]interface{}) *ErrorBuilder {
	b.err = &detailedError{cause: b.err, details: details}
	return b
}

// Mark tags the error with a sentinel so callers can branch with errors.Is
func (b *ErrorBuilder) Mark(reference error) error {
	return errors.Mark(b.err, reference)
}

func (b *ErrorBuilder) Err() error {
	return b.err
}

type detailedError struct {
	cause   error
	details map[string]interface{}
}

func (e *detailedError) Error() string { return e.cause.Error() }
func (e *detailedError) Unwrap() error { return e.cause }

// GetHint returns the hints attached to err joined by newlines
func GetHint(err error) string {
	return errors.FlattenHints(err)
}

// GetReportableDetails merges every reportable details map found in the chain
func GetReportableDetails(err error) map[string]interface{} {
	out := map[string]interface{}{}
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if d, ok := e.(*detailedError); ok {
			for k, v := range d.details {
				if _, exists := out[k]; !exists {
					out[k] = v
				}
			}
		}
	}
	return out
}
