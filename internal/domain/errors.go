package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

// Is lets errors.Is() match the typed errors against their sentinels
func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool    { return target == ErrForbidden }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrInvalidInvitee is returned when the invitee is the document owner or the caller.
	ErrInvalidInvitee = errors.New("invalid invitee")

	// ErrAlreadyCollaborator is returned when the invitee is already an editor or viewer.
	// Matches ErrConflict as well.
	ErrAlreadyCollaborator = &ConflictError{
		Message:      "user is already a collaborator on this document",
		ResourceType: "collaborator",
	}
)

// PermissionDeniedMessage is the single message shown for every authorization failure.
// It never names the document field that failed the check.
const PermissionDeniedMessage = "permission denied"

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (document, collaborator)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is matches ErrConflict, and ErrAlreadyCollaborator for collaborator conflicts
func (e *ConflictError) Is(target error) bool {
	if target == ErrConflict {
		return true
	}
	return target == ErrAlreadyCollaborator && e.ResourceType == ErrAlreadyCollaborator.ResourceType
}

// AlreadyCollaborator reports that userID already holds a role on the document
func AlreadyCollaborator(userID string) error {
	return &ConflictError{
		Message:      ErrAlreadyCollaborator.Message,
		ResourceType: ErrAlreadyCollaborator.ResourceType,
		ResourceID:   userID,
	}
}

// Forbidden returns the generic permission-denied error.
func Forbidden() error {
	return &ForbiddenError{Message: PermissionDeniedMessage}
}
