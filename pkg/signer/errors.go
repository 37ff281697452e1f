package signer

import "errors"

// ErrorCode enumerates driver-level business failures. These are returned as
// values through the normal error channel and discriminated with IsDriverError
// / Is; they are never panics and never wrap infrastructure errors.
type ErrorCode string

const (
	CodeKeyNotFound         ErrorCode = "key_not_found"
	CodeTransactionNotFound ErrorCode = "transaction_not_found"
	CodeBadArguments        ErrorCode = "bad_arguments"
	CodeFetchError          ErrorCode = "fetch_error"
	CodeSigningError        ErrorCode = "signing_error"
	CodeCreateKeyError      ErrorCode = "create_key_error"
)

// Error is the uniform business-error value every driver returns, regardless
// of backend. The routing layer treats all drivers identically by checking
// only the code.
type Error struct {
	Code        ErrorCode
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Description
}

// NewError builds a driver error value.
func NewError(code ErrorCode, description string) *Error {
	return &Error{Code: code, Description: description}
}

// IsDriverError is the single predicate callers use to distinguish driver
// business errors from infrastructure failures.
func IsDriverError(err error) bool {
	var de *Error
	return errors.As(err, &de)
}

// Is reports whether err is a driver error with the given code.
func Is(err error, code ErrorCode) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of a driver error, or "" for any other error.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
