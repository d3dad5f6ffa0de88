package errors

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors used with Mark to classify failures. Handlers map these to
// HTTP statuses; services only ever mark, never pick status codes.
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrPermissionDenied = errors.New("permission denied")
	ErrDatabase         = errors.New("database error")
	ErrInternal         = errors.New("internal error")
	ErrSystem           = errors.New("system error")
)

// InternalError is the concrete error carried through the stack. It keeps a
// cockroachdb/errors chain for stack traces plus structured fields surfaced
// in API responses.
type InternalError struct {
	err               error
	hint              string
	displayCode       string
	reportableDetails map[string]interface{}
}

func (e *InternalError) Error() string {
	if e.hint != "" {
		return e.hint + ": " + e.err.Error()
	}
	return e.err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.err
}

// ErrorBuilder builds an InternalError fluently.
type ErrorBuilder struct {
	e *InternalError
}

// NewError starts a builder from a message.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{e: &InternalError{err: errors.New(msg)}}
}

// NewErrorf starts a builder from a formatted message.
func NewErrorf(format string, args ...interface{}) *ErrorBuilder {
	return &ErrorBuilder{e: &InternalError{err: errors.Newf(format, args...)}}
}

// WithError starts a builder wrapping an existing error.
func WithError(err error) *ErrorBuilder {
	if err == nil {
		err = errors.New("unknown error")
	}
	return &ErrorBuilder{e: &InternalError{err: err}}
}

// WithHint attaches a human-readable hint shown to API clients.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.e.hint = hint
	return b
}

// WithHintf attaches a formatted hint.
func (b *ErrorBuilder) WithHintf(format string, args ...interface{}) *ErrorBuilder {
	b.e.hint = errors.Newf(format, args...).Error()
	return b
}

// WithDisplayCode attaches a machine-readable code (e.g. INVALID_AMOUNT)
// surfaced verbatim in API responses so clients never parse messages.
func (b *ErrorBuilder) WithDisplayCode(code string) *ErrorBuilder {
	b.e.displayCode = code
	return b
}

// WithReportableDetails attaches structured details safe to return to clients.
func (b *ErrorBuilder) WithReportableDetails(details map[string]interface{}) *ErrorBuilder {
	b.e.reportableDetails = details
	return b
}

// Mark finalizes the builder, classifying the error with one of the sentinels.
func (b *ErrorBuilder) Mark(sentinel error) error {
	b.e.err = errors.Mark(b.e.err, sentinel)
	return b.e
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// Hint extracts the hint from an error chain, if any.
func Hint(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.hint
	}
	return ""
}

// DisplayCode extracts the machine code from an error chain, if any.
func DisplayCode(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.displayCode
	}
	return ""
}

// ReportableDetails extracts structured details from an error chain, if any.
func ReportableDetails(err error) map[string]interface{} {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.reportableDetails
	}
	return nil
}
