package renderer

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// StatusError is a failed renderer call escalated to an error.
type StatusError struct {
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	return e.Message + ": " + e.Status.String()
}

// ErrorCheck logs a failed status and reports whether the call failed.
// This is the continue-on-failure path used by every setter.
//
// Parameters:
//   - log: destination logger
//   - status: the status returned by the renderer call
//   - msg: what was being attempted
//   - fields: extra log fields
//
// Returns:
//   - bool: true if status is not StatusSuccess
func ErrorCheck(log *zap.Logger, status Status, msg string, fields ...zap.Field) bool {
	if status == StatusSuccess {
		return false
	}
	log.Error(msg, append(fields, zap.Stringer("status", status))...)
	return true
}

// Check escalates a failed status to an error for construction paths that must abort.
//
// Parameters:
//   - status: the status returned by the renderer call
//   - msg: what was being attempted
//
// Returns:
//   - error: nil on success, otherwise a *StatusError with a stack trace
func Check(status Status, msg string) error {
	if status == StatusSuccess {
		return nil
	}
	return errors.WithStack(&StatusError{Status: status, Message: msg})
}

// StatusOf extracts the status of an error returned by Check.
//
// Returns:
//   - Status: the wrapped status, StatusInternalError for foreign errors, StatusSuccess for nil
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return StatusInternalError
}
