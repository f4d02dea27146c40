package problem

import (
	"fmt"

	"github.com/pkg/errors"
)

// Categories known to the default registry.
const (
	CategoryArgument           = "argument"
	CategoryArgumentOutOfRange = "argument.out_of_range"
	CategoryInvalidOperation   = "invalid_operation"
	CategoryNotFound           = "not_found"
	CategoryUnauthorized       = "unauthorized"
	CategoryNotImplemented     = "not_implemented"
	CategoryTimeout            = "timeout"
	CategoryPanic              = "panic"
)

// Categorized is implemented by errors that carry a stable category
// identifier used for status lookup.
type Categorized interface {
	error
	Category() string
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Exception is a categorized error with an optional cause. It records the
// stack of its creation.
type Exception struct {
	category string
	message  string
	cause    error
	stack    errors.StackTrace
}

// NewException returns an exception of category with message, caused by cause
// (which may be nil).
func NewException(category, message string, cause error) *Exception {
	var st errors.StackTrace
	if t, ok := errors.New(message).(stackTracer); ok {
		st = t.StackTrace()
		if len(st) > 0 {
			st = st[1:]
		}
	}
	return &Exception{category: category, message: message, cause: cause, stack: st}
}

func (e *Exception) Error() string {
	if e.cause == nil {
		return e.message
	}
	return e.message + ": " + e.cause.Error()
}

func (e *Exception) Category() string { return e.category }

// Message is the exception's own message without its causes.
func (e *Exception) Message() string { return e.message }

func (e *Exception) Unwrap() error { return e.cause }

func (e *Exception) Cause() error { return e.cause }

func (e *Exception) StackTrace() errors.StackTrace { return e.stack }

// PanicError carries a value recovered from a panic together with the stack
// at the point of recovery.
type PanicError struct {
	Value any
	Stack string
}

// Recovered converts a recovered panic value into an error.
func Recovered(value any, stack []byte) *PanicError {
	return &PanicError{Value: value, Stack: string(stack)}
}

func (p *PanicError) Error() string {
	if err, ok := p.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(p.Value)
}

func (p *PanicError) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}

func (p *PanicError) Category() string { return CategoryPanic }
