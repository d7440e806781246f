package docstore

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// ErrCode classifies document store errors
type ErrCode uint8

const (
	CodeUnknown           ErrCode = iota // 0: unclassified
	CodeDuplicateKey                     // 1: unique index violation
	CodeInvalidQuery                     // 2: filter or sort cannot be evaluated
	CodeMalformedSnapshot                // 3: backup data cannot be restored
	CodeStorage                          // 4: the persistence adapter failed (e.g. quota)
	CodeInvalidArgument                  // 5: bad collection name, field, skip/limit ...
)

func (c ErrCode) String() string {
	switch c {
	case CodeDuplicateKey:
		return "DuplicateKey"
	case CodeInvalidQuery:
		return "InvalidQuery"
	case CodeMalformedSnapshot:
		return "MalformedSnapshot"
	case CodeStorage:
		return "Storage"
	case CodeInvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Error is returned by every Database operation. Code tells callers what went wrong,
// Err carries the underlying cause (e.g. a *store.Error with a quota code).
type Error struct {
	Code ErrCode
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("DocStoreError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("DocStoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap exposes the cause to errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches by code, so errors.Is(err, ErrDuplicateKey) holds for every duplicate key error
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is
var (
	ErrDuplicateKey      = &Error{Code: CodeDuplicateKey, Msg: "duplicate key"}
	ErrInvalidQuery      = &Error{Code: CodeInvalidQuery, Msg: "invalid query"}
	ErrMalformedSnapshot = &Error{Code: CodeMalformedSnapshot, Msg: "malformed snapshot"}
	ErrStorage           = &Error{Code: CodeStorage, Msg: "storage failure"}
	ErrInvalidArgument   = &Error{Code: CodeInvalidArgument, Msg: "invalid argument"}
)

func newError(code ErrCode, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func storageError(err error, format string, args ...any) *Error {
	return &Error{Code: CodeStorage, Msg: fmt.Sprintf(format, args...), Err: err}
}
