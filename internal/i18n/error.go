package i18n

import (
	"errors"
	"net/http"
)

// ErrorCode represents an HTTP status code
type ErrorCode int

const (
	ErrorBadRequest     ErrorCode = http.StatusBadRequest
	ErrorUnauthorized   ErrorCode = http.StatusUnauthorized
	ErrorForbidden      ErrorCode = http.StatusForbidden
	ErrorNotFound       ErrorCode = http.StatusNotFound
	ErrorConflict       ErrorCode = http.StatusConflict
	ErrorInternalServer ErrorCode = http.StatusInternalServerError
)

// I18nError is a translatable error identified by a message ID.
type I18nError struct {
	MessageID string
	Data      map[string]any
}

// Error renders the message in the default language.
func (e *I18nError) Error() string {
	return GetTranslator().Translate(e.MessageID, defaultLang, e.Data)
}

// ErrorWithCode is an error with a code that can be used in API responses
type ErrorWithCode struct {
	*I18nError
	Code ErrorCode
}

// NewErrorWithCode creates a new error with a code
func NewErrorWithCode(messageID string, code ErrorCode) *ErrorWithCode {
	return &ErrorWithCode{
		I18nError: &I18nError{MessageID: messageID},
		Code:      code,
	}
}

// WithParam returns a copy carrying one extra template parameter. The
// package-level error values are shared and never mutated.
func (e *ErrorWithCode) WithParam(key string, value any) *ErrorWithCode {
	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value
	return &ErrorWithCode{
		I18nError: &I18nError{MessageID: e.MessageID, Data: data},
		Code:      e.Code,
	}
}

// Is matches on message ID so parameterized copies still compare equal to
// the package-level value.
func (e *ErrorWithCode) Is(target error) bool {
	var t *ErrorWithCode
	if !errors.As(target, &t) {
		return false
	}
	return t.MessageID == e.MessageID
}
