// Package apperr holds the error taxonomy shared by the services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Entity names used in NotFound errors.
const (
	EntityServiceOrder = "Service order"
	EntityClient       = "Client"
	EntityUser         = "User"
	EntityMaterial     = "Material"
)

// InternalMessage is the fixed message returned for unexpected failures.
const InternalMessage = "Internal server error"

var (
	ErrMaterialNotInOrder = errors.New("material not found in service order")
	ErrConflict           = errors.New("resource was modified concurrently, reload and try again")
	ErrInternal           = errors.New(InternalMessage)
)

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

// Is matches any NotFoundError for the same entity.
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	return ok && t.Entity == e.Entity
}

// NotFound builds a NotFoundError for entity.
func NotFound(entity string) error {
	return &NotFoundError{Entity: entity}
}

// ValidationError reports input that breaks a business rule.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation builds a ValidationError.
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AlreadyExistsError reports a unique value that is already taken.
type AlreadyExistsError struct {
	What string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists", e.What)
}

// AlreadyExists builds an AlreadyExistsError.
func AlreadyExists(what string) error {
	return &AlreadyExistsError{What: what}
}

// IsDomain reports whether err belongs to the taxonomy and can be shown to callers as is.
func IsDomain(err error) bool {
	var nf *NotFoundError
	var ve *ValidationError
	var ae *AlreadyExistsError
	return errors.As(err, &nf) || errors.As(err, &ve) || errors.As(err, &ae) ||
		errors.Is(err, ErrMaterialNotInOrder) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInternal)
}

// HTTPStatus maps an error to the status code used by the API.
func HTTPStatus(err error) int {
	var nf *NotFoundError
	var ve *ValidationError
	var ae *AlreadyExistsError
	switch {
	case errors.As(err, &nf), errors.Is(err, ErrMaterialNotInOrder):
		return http.StatusNotFound
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict), errors.As(err, &ae):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing message for err. Errors outside the taxonomy
// never leak their text.
func Message(err error) string {
	if IsDomain(err) {
		return err.Error()
	}
	return InternalMessage
}
