package apperr

import (
	"errors"
	"net/http"
)

// Error is a typed application error. Code identifies the failure class,
// Status is the HTTP status the outer surface should answer with.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message,omitempty"`
	Status  int            `json:"-"`
	Fields  map[string]any `json:"fields,omitempty"`
	Err     error          `json:"-"`
}

var (
	ErrNotFound           = New("not_found", http.StatusNotFound, "resource not found")
	ErrInvalidArgument    = New("invalid_argument", http.StatusBadRequest, "invalid argument")
	ErrConflict           = New("conflict", http.StatusConflict, "uniqueness constraint violated")
	ErrStorageUnavailable = New("storage_unavailable", http.StatusServiceUnavailable, "storage unavailable")
	ErrInternal           = New("internal_error", http.StatusInternalServerError, "internal error")
)

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return "error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is an *Error of the same class, so that
// errors.Is(err, apperr.ErrNotFound) holds for wrapped copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap returns a copy of base carrying err as its cause. An empty message
// keeps the message of base.
func Wrap(err error, base *Error, message string) *Error {
	if err == nil {
		return nil
	}
	if base == nil {
		base = ErrInternal
	}
	copy := *base
	if message != "" {
		copy.Message = message
	}
	copy.Err = err
	return &copy
}

// Newf returns a copy of base with the given message and no cause.
func Newf(base *Error, message string) *Error {
	copy := *base
	copy.Message = message
	return &copy
}

func WithFields(base *Error, fields map[string]any) *Error {
	if base == nil {
		return nil
	}
	copy := *base
	copy.Fields = fields
	return &copy
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

func Status(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

func Code(err error) string {
	if e, ok := As(err); ok && e.Code != "" {
		return e.Code
	}
	return ErrInternal.Code
}

func Message(err error) string {
	if e, ok := As(err); ok {
		if e.Message != "" {
			return e.Message
		}
		if e.Err != nil {
			return e.Err.Error()
		}
		return e.Code
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// Payload renders err as the JSON error body used by the HTTP layer.
func Payload(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	payload := map[string]any{
		"code":    Code(err),
		"message": Message(err),
	}
	if e, ok := As(err); ok && len(e.Fields) > 0 {
		payload["fields"] = e.Fields
	}
	return payload
}
