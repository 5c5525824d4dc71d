package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure independently of any transport.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindBadRequest       Kind = "bad_request"
	KindInvalidOrExpired Kind = "invalid_or_expired"
	KindInternal         Kind = "internal"
)

var kindStatus = map[Kind]int{
	KindNotFound:         http.StatusNotFound,
	KindConflict:         http.StatusConflict,
	KindUnauthorized:     http.StatusUnauthorized,
	KindForbidden:        http.StatusForbidden,
	KindBadRequest:       http.StatusBadRequest,
	KindInvalidOrExpired: http.StatusBadRequest,
	KindInternal:         http.StatusInternalServerError,
}

type AppError struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *AppError) StatusCode() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	if status, ok := kindStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func BadRequest(code, msg string, err error) *AppError {
	return newAppError(KindBadRequest, code, msg, err)
}

func NotFound(code, msg string, err error) *AppError {
	return newAppError(KindNotFound, code, msg, err)
}

func Conflict(code, msg string, err error) *AppError {
	return newAppError(KindConflict, code, msg, err)
}

func Unauthorized(code, msg string, err error) *AppError {
	return newAppError(KindUnauthorized, code, msg, err)
}

func Forbidden(code, msg string, err error) *AppError {
	return newAppError(KindForbidden, code, msg, err)
}

func InvalidOrExpired(code, msg string, err error) *AppError {
	return newAppError(KindInvalidOrExpired, code, msg, err)
}

func Internal(code, msg string, err error) *AppError {
	return newAppError(KindInternal, code, msg, err)
}

// FromError returns err as an *AppError, wrapping anything untyped as Internal.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
}

// KindOf reports the kind of err, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return FromError(err).Kind
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func newAppError(kind Kind, code, msg string, err error) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: msg,
		Err:     err,
	}
}
