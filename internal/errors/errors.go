// Package errors defines the structured error taxonomy shared by the ops
// layer, the CLI, the MCP tools, and the web viewer.
package errors

import "fmt"

// ErrorCode represents a Veil error code.
type ErrorCode string

const (
	ErrNotAuthenticated   ErrorCode = "NOT_AUTHENTICATED"   // 401
	ErrNoActiveProject    ErrorCode = "NO_ACTIVE_PROJECT"   // 400
	ErrAccessDenied       ErrorCode = "ACCESS_DENIED"       // 403
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrIntegrityViolation ErrorCode = "INTEGRITY_VIOLATION" // 409
	ErrInternal           ErrorCode = "INTERNAL"            // 500
)

// VeilError represents a structured error with code, status, and details.
type VeilError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *VeilError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNotAuthenticated creates a 401 error for operations that require a
// logged-in user.
func NewNotAuthenticated() *VeilError {
	return &VeilError{
		Code:    ErrNotAuthenticated,
		Status:  401,
		Message: "no active user session; log in first",
	}
}

// NewNoActiveProject creates a 400 error for operations that require a
// selected project.
func NewNoActiveProject() *VeilError {
	return &VeilError{
		Code:    ErrNoActiveProject,
		Status:  400,
		Message: "no active project; create or select one first",
	}
}

// NewAccessDenied creates a 403 error for operating on a project the current
// user does not own.
func NewAccessDenied(projectID int64) *VeilError {
	return &VeilError{
		Code:    ErrAccessDenied,
		Status:  403,
		Message: fmt.Sprintf("project %d is not owned by the current user", projectID),
		Details: map[string]any{"project_id": projectID},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *VeilError {
	return &VeilError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing project, user, or mapping.
func NewNotFound(kind, identifier string) *VeilError {
	return &VeilError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewIntegrityViolation creates a 409 error for a duplicate unique key, such
// as a project name already taken by the same owner.
func NewIntegrityViolation(msg string) *VeilError {
	return &VeilError{
		Code:    ErrIntegrityViolation,
		Status:  409,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *VeilError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &VeilError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a VeilError with the given code.
func Is(err error, code ErrorCode) bool {
	if vErr, ok := err.(*VeilError); ok {
		return vErr.Code == code
	}
	return false
}
