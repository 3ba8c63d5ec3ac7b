// Package expr implements the query-execution substrate: the typed
// expression tree, the recursive evaluator, the overload-resolving
// function registry with its built-in library, and the evaluation context
// that threads variables, scopes and compiled-regex caches through nested
// execution.
package expr

import "fmt"

// ErrorType classifies expression evaluation failures. The set is closed;
// the query layer maps all of them to QueryExecutionFailed with the
// sub-kind embedded.
type ErrorType int

const (
	UndefinedVariable ErrorType = iota
	UndefinedFunction
	UndefinedParameter
	PropertyNotFound
	LabelNotFound
	TypeMismatch
	IndexOutOfBounds
	ArgumentCountError
	InvalidOperation
	RuntimeError
)

func (t ErrorType) String() string {
	switch t {
	case UndefinedVariable:
		return "UndefinedVariable"
	case UndefinedFunction:
		return "UndefinedFunction"
	case UndefinedParameter:
		return "UndefinedParameter"
	case PropertyNotFound:
		return "PropertyNotFound"
	case LabelNotFound:
		return "LabelNotFound"
	case TypeMismatch:
		return "TypeError"
	case IndexOutOfBounds:
		return "IndexOutOfBounds"
	case ArgumentCountError:
		return "ArgumentCountError"
	case InvalidOperation:
		return "InvalidOperation"
	case RuntimeError:
		return "RuntimeError"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// Error is an expression evaluation failure.
type Error struct {
	Type    ErrorType
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewError creates an expression error.
func NewError(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Errorf creates an expression error with a formatted message.
func Errorf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}
