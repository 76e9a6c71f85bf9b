package app

import (
	"fmt"
	"net/http"
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

// errNotAuthorized carries no detail about the target, so a denied caller
// cannot probe for existence.
func errNotAuthorized() *DomainError {
	return domainError(http.StatusForbidden, "NOT_AUTHORIZED", "You do not have permission to perform this action", nil)
}

func errNotFound(what string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", what+" not found", nil)
}

func errInvariantViolation(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "INVARIANT_VIOLATION", message, nil)
}

func errValidation(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}
