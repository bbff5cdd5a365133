package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/jrsteele09/go-fitness-client/internal/utils"
)

// Kind classifies an error returned by the client so callers can branch without
// inspecting error strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNetwork
	KindServer
	KindAuthorization
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindAuthorization:
		return "authorization"
	}
	return "unknown"
}

// ValidationError holds every invalid input field with its messages.
// It never reaches the network layer.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a message against a field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// Messages returns all messages ordered by field name.
func (e *ValidationError) Messages() []string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var msgs []string
	for _, f := range fields {
		msgs = append(msgs, e.Fields[f]...)
	}
	return msgs
}

func (e *ValidationError) Error() string {
	return "validation error: " + strings.Join(e.Messages(), ", ")
}

// NetworkError is a transport failure where no response was received.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// ServerError is a non-2xx response that was not an authorization failure. Status is
// zero when a 2xx response could not be used.
type ServerError struct {
	Status  int
	Message string // From the {message} body field when present
	Body    []byte
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error %d: %s", e.Status, http.StatusText(e.Status))
}

// AuthorizationError is a 401 or 403 response. By the time a caller sees it the
// session has already been reset.
type AuthorizationError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *AuthorizationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authorization error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("authorization error %d: %s", e.Status, http.StatusText(e.Status))
}

// IsAuthorizationStatus reports whether status revokes the session.
func IsAuthorizationStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// KindOf returns the taxonomy kind of err, walking wrapped errors.
func KindOf(err error) Kind {
	var (
		validationErr    *ValidationError
		networkErr       *NetworkError
		serverErr        *ServerError
		authorizationErr *AuthorizationError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &authorizationErr):
		return KindAuthorization
	case errors.As(err, &serverErr):
		return KindServer
	case errors.As(err, &networkErr):
		return KindNetwork
	}
	return KindUnknown
}

// UserMessage renders err as a single human-readable failure line.
func UserMessage(op string, err error) string {
	switch KindOf(err) {
	case KindValidation:
		var v *ValidationError
		errors.As(err, &v)
		return fmt.Sprintf("Validation error during %s: %s", op, strings.Join(v.Messages(), ", "))
	case KindNetwork:
		return fmt.Sprintf("%s failed: could not reach the server", utils.CapitalizeFirstLetter(op))
	case KindServer, KindAuthorization:
		return fmt.Sprintf("%s failed: %s", utils.CapitalizeFirstLetter(op), err.Error())
	}
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s failed: %s", utils.CapitalizeFirstLetter(op), err.Error())
}
