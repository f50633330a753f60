package routing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies route registry failures.
type ErrorCode string

const (
	CodeAlreadyRouted     ErrorCode = "already_routed"
	CodeNotYetRouted      ErrorCode = "not_yet_routed"
	CodeStoreFailure      ErrorCode = "store_failure"
	CodePathTaken         ErrorCode = "path_taken"
	CodeConflictExhausted ErrorCode = "conflict_exhausted"
	CodeInvalidArgument   ErrorCode = "invalid_argument"
	CodeNotFound          ErrorCode = "not_found"
)

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates err with a code. Already-coded errors are returned as is.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	var rErr *Error
	if errors.As(err, &rErr) {
		return err
	}
	return NewError(code, op, err.Error(), err)
}

func IsCode(err error, code ErrorCode) bool {
	var rErr *Error
	if !errors.As(err, &rErr) {
		return false
	}
	return rErr.Code == code
}

func CodeOf(err error) ErrorCode {
	var rErr *Error
	if !errors.As(err, &rErr) {
		return ""
	}
	return rErr.Code
}

// IsStoreFailure reports whether err came from the path store.
func IsStoreFailure(err error) bool {
	switch CodeOf(err) {
	case CodeStoreFailure, CodePathTaken:
		return true
	default:
		return false
	}
}
