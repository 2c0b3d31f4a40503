// Package dberror defines the structured error type returned by the storage
// engine and the sentinel values callers match against with errors.Is.
package dberror

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorCategory classifies errors by their nature and appropriate handling strategy.
type ErrorCategory int

const (
	// ErrCategoryUser represents errors caused by invalid input, such as a
	// tuple whose schema does not match its table.
	ErrCategoryUser ErrorCategory = iota

	// ErrCategoryTransient represents temporary errors that might succeed on
	// retry, such as a buffer pool full of dirty pages.
	ErrCategoryTransient

	// ErrCategorySystem represents I/O and configuration failures.
	ErrCategorySystem

	// ErrCategoryData represents references to data that does not exist or
	// cannot be decoded.
	ErrCategoryData

	// ErrCategoryConcurrency represents lock conflicts between transactions.
	// The transaction should be aborted and may be retried.
	ErrCategoryConcurrency
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryUser:
		return "user"
	case ErrCategoryTransient:
		return "transient"
	case ErrCategorySystem:
		return "system"
	case ErrCategoryData:
		return "data"
	case ErrCategoryConcurrency:
		return "concurrency"
	default:
		return "unknown"
	}
}

// Error codes.
const (
	CodeLockTimeout          = "LOCK_TIMEOUT"
	CodeResourceExhausted    = "RESOURCE_EXHAUSTED"
	CodeInvalidPageReference = "INVALID_PAGE_REFERENCE"
	CodeSchemaMismatch       = "SCHEMA_MISMATCH"
	CodeTableNotFound        = "TABLE_NOT_FOUND"
	CodeIO                   = "IO_ERROR"
)

// Sentinels for errors.Is. A DBError matches a sentinel when the codes are equal,
// so wrapped instances carrying detail still match.
var (
	ErrLockTimeout          = &DBError{Code: CodeLockTimeout, Category: ErrCategoryConcurrency, Message: "lock wait timed out"}
	ErrResourceExhausted    = &DBError{Code: CodeResourceExhausted, Category: ErrCategoryTransient, Message: "no clean page available for eviction"}
	ErrInvalidPageReference = &DBError{Code: CodeInvalidPageReference, Category: ErrCategoryData, Message: "invalid page reference"}
	ErrSchemaMismatch       = &DBError{Code: CodeSchemaMismatch, Category: ErrCategoryUser, Message: "tuple schema does not match table"}
	ErrTableNotFound        = &DBError{Code: CodeTableNotFound, Category: ErrCategoryUser, Message: "table not found"}
)

// DBError represents a structured database error with context information.
type DBError struct {
	// Code is a unique identifier for this error type (e.g. "LOCK_TIMEOUT").
	Code string

	Category ErrorCategory

	// Message is a human-readable description of what went wrong.
	Message string

	// Detail describes the specific instance, e.g. which page or transaction.
	Detail string

	// Operation identifies the call that failed, e.g. "GetPage".
	Operation string

	// Component identifies where the error originated, e.g. "PageStore".
	Component string

	Cause error

	// Stack is captured by New and Wrap. Sentinels carry none.
	Stack []uintptr
}

// New creates a new DBError with the specified code, category, and message.
func New(category ErrorCategory, code, message string) *DBError {
	return &DBError{
		Code:     code,
		Category: category,
		Message:  message,
		Stack:    captureStack(),
	}
}

// Newf derives a new error from a sentinel, adding instance detail and the
// operation/component that raised it.
func Newf(sentinel *DBError, operation, component, format string, args ...any) *DBError {
	return &DBError{
		Code:      sentinel.Code,
		Category:  sentinel.Category,
		Message:   sentinel.Message,
		Detail:    fmt.Sprintf(format, args...),
		Operation: operation,
		Component: component,
		Stack:     captureStack(),
	}
}

// Wrap wraps an existing error with database-specific context information.
// If the error is already a DBError, it enriches the existing error with
// operation and component context (only if not already set).
func Wrap(err error, code, operation, component string) *DBError {
	if err == nil {
		return nil
	}

	if dbErr, ok := err.(*DBError); ok {
		if dbErr.Operation == "" {
			dbErr.Operation = operation
		}
		if dbErr.Component == "" {
			dbErr.Component = component
		}
		return dbErr
	}

	return &DBError{
		Code:      code,
		Category:  ErrCategorySystem,
		Message:   err.Error(),
		Operation: operation,
		Component: component,
		Cause:     err,
		Stack:     captureStack(),
	}
}

// captureStack skips captureStack, New/Wrap, and runtime.Callers itself.
func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[0:n]
}

// Error formats as:
// [ERROR_CODE] Message: Detail (operation: Operation, component: Component) caused by: underlying error
func (e *DBError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)

	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}

	if e.Operation != "" {
		fmt.Fprintf(&b, " (operation: %s", e.Operation)
		if e.Component != "" {
			fmt.Fprintf(&b, ", component: %s", e.Component)
		}
		b.WriteString(")")
	}

	if e.Cause != nil {
		fmt.Fprintf(&b, " caused by: %v", e.Cause)
	}

	return b.String()
}

func (e *DBError) Unwrap() error {
	return e.Cause
}

// Is matches any DBError with the same code.
func (e *DBError) Is(target error) bool {
	t, ok := target.(*DBError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// IsRetryable reports whether err is a lock timeout or a transient
// resource shortage, i.e. whether aborting and re-running the transaction
// may succeed.
func IsRetryable(err error) bool {
	var dbErr *DBError
	if !errors.As(err, &dbErr) {
		return false
	}
	return dbErr.Category == ErrCategoryConcurrency || dbErr.Category == ErrCategoryTransient
}

// FormatStack returns a human-readable stack trace for debugging purposes.
func (e *DBError) FormatStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(e.Stack)

	b.WriteString("Stack trace:\n")
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "  %s\n    %s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}

	return b.String()
}
