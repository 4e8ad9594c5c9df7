package app

import (
	"errors"
	"fmt"
	"net/http"

	"plantai/api/internal/accounts"
	"plantai/api/internal/auth"
	"plantai/api/internal/store"
)

type DomainError struct {
	Status  int
	Message string
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func domainError(status int, message string) *DomainError {
	return &DomainError{Status: status, Message: message}
}

// mapError translates service errors into an HTTP status and the error text
// for the response envelope.
func mapError(err error) (status int, message string) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Message
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, accounts.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, accounts.ErrDuplicateIdentity):
		return http.StatusBadRequest, "User already exists"
	case errors.Is(err, accounts.ErrInvalidCredential):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusForbidden, "Invalid or expired token"
	}
	return http.StatusInternalServerError, "Server error"
}
