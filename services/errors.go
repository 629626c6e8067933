package services

import (
	"errors"
	"fmt"

	"github.com/tablefire/ordering-api/repository"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidState      = errors.New("invalid state")
	ErrAlreadyRated      = errors.New("already rated")
	ErrForbidden         = errors.New("forbidden")
	ErrUnavailable       = errors.New("unavailable")
)

// Error codes returned to API clients
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeConflict          = "CONFLICT"
	CodeDuplicateReview   = "DUPLICATE_REVIEW"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInvalidState      = "INVALID_STATE"
	CodeAlreadyRated      = "ALREADY_RATED"
	CodeForbidden         = "FORBIDDEN"
	CodeItemUnavailable   = "ITEM_UNAVAILABLE"

	CodeOrderNotFound     = "ORDER_NOT_FOUND"
	CodeMenuItemNotFound  = "MENU_ITEM_NOT_FOUND"
	CodeInventoryNotFound = "INVENTORY_ITEM_NOT_FOUND"
	CodeAlertNotFound     = "ALERT_NOT_FOUND"
	CodeUserNotFound      = "USER_NOT_FOUND"
)

// Error is a domain error carrying the client-facing code and, for
// validation failures, the offending field.
type Error struct {
	Kind    error
	Code    string
	Message string
	Field   string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func validationError(field, message string) *Error {
	return &Error{Kind: ErrValidation, Code: CodeValidation, Message: message, Field: field}
}

func notFoundError(code, message string) *Error {
	return &Error{Kind: ErrNotFound, Code: code, Message: message}
}

func forbiddenError(message string) *Error {
	return &Error{Kind: ErrForbidden, Code: CodeForbidden, Message: message}
}

func conflictError(message string) *Error {
	return &Error{Kind: ErrConflict, Code: CodeConflict, Message: message}
}

// fromRepository converts repository sentinels into domain errors
func fromRepository(err error, notFoundCode, notFoundMessage string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFoundError(notFoundCode, notFoundMessage)
	case errors.Is(err, repository.ErrStaleVersion):
		return conflictError("The record was changed by another request, please retry")
	case errors.Is(err, repository.ErrDuplicate):
		return conflictError("A record with the same unique value already exists")
	}
	return err
}
