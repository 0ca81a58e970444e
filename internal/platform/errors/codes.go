// Package errors provides structured error handling with i18n support.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request errors
	CodeValidation  Code = "VALIDATION"
	CodeRateLimited Code = "RATE_LIMITED"

	// Admin errors
	CodeUnauthorized Code = "UNAUTHORIZED"

	// Session errors
	CodeAttendanceWindowClosed Code = "ATTENDANCE_WINDOW_CLOSED"
	CodeMembershipNotFound     Code = "MEMBERSHIP_NOT_FOUND"
	CodeSweepInProgress        Code = "SWEEP_IN_PROGRESS"

	// Lateness errors
	CodeLatenessReportFailed Code = "LATENESS_REPORT_FAILED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation,
		CodeMembershipNotFound:
		return http.StatusBadRequest

	case CodeUnauthorized:
		return http.StatusUnauthorized

	case CodeAttendanceWindowClosed:
		return http.StatusForbidden

	case CodeNotFound:
		return http.StatusNotFound

	case CodeSweepInProgress:
		return http.StatusConflict

	case CodeRateLimited:
		return http.StatusTooManyRequests

	case CodeLatenessReportFailed:
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
