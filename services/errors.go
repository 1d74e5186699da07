package services

import (
	"net/http"
	"strings"
)

// Error is a service-level failure with a stable code suitable for the
// API response envelope. Internal driver detail is never carried here.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

// Shared service errors. Controllers map these to HTTP responses via
// their Status; anything else surfaces as a generic 500.
var (
	ErrNotFound = &Error{Code: "NOT_FOUND", Message: "Resource not found", Status: http.StatusNotFound}

	ErrForbidden = &Error{Code: "FORBIDDEN", Message: "You do not have permission to perform this action", Status: http.StatusForbidden}

	ErrInvalidCredentials = &Error{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", Status: http.StatusUnauthorized}

	ErrInvalidAssignee = &Error{Code: "INVALID_ASSIGNEE", Message: "Invalid or inactive electrician", Status: http.StatusBadRequest}

	ErrInvalidStatus = &Error{Code: "INVALID_STATUS", Message: "Invalid status value", Status: http.StatusBadRequest}

	ErrInvalidRating = &Error{Code: "INVALID_RATING", Message: "Rating must be between 1 and 5", Status: http.StatusBadRequest}

	ErrInvalidTask = &Error{Code: "INVALID_TASK", Message: "Task not found or not assigned to you", Status: http.StatusBadRequest}

	ErrTerminalState = &Error{Code: "TERMINAL_STATE", Message: "Completed or cancelled tasks cannot be modified", Status: http.StatusBadRequest}

	ErrLastAdmin = &Error{Code: "LAST_ADMIN", Message: "Cannot delete the last admin user", Status: http.StatusBadRequest}

	ErrSelfDelete = &Error{Code: "SELF_DELETE", Message: "Cannot delete your own account", Status: http.StatusBadRequest}

	ErrReferentialConflict = &Error{Code: "REFERENTIAL_CONFLICT", Message: "Cannot delete user. User has associated records in the system.", Status: http.StatusBadRequest}

	ErrDuplicateUser = &Error{Code: "USER_EXISTS", Message: "Email or username already exists", Status: http.StatusBadRequest}

	ErrWeakPassword = &Error{Code: "WEAK_PASSWORD", Message: "Password must be at least 6 characters long", Status: http.StatusBadRequest}
)

// isDuplicateError reports whether err looks like a unique-constraint
// violation. Matches both PostgreSQL and SQLite driver messages.
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique")
}

// isForeignKeyError reports whether err looks like a foreign-key
// constraint violation. Matches both PostgreSQL and SQLite driver messages.
func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key") ||
		strings.Contains(msg, "violates foreign key constraint")
}
