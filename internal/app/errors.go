package app

import (
	"errors"
	"fmt"
	"net/http"

	"factboard/api/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Fact not found", nil
	}
	if errors.Is(err, store.ErrUnknownColumn) {
		return http.StatusUnprocessableEntity, "UNKNOWN_COLUMN", "Unknown vote column", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
