package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/authweave/idkit/errors"
)

// IsNotFoundError checks if the error is a GORM record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError checks if the error is a duplicate-key violation.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// IsConnectionError checks if a database error looks like a connection
// failure that might be resolved by retrying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"driver: bad connection",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// FromDatabase converts a database error to an AppError. "Not found" and
// "error" stay distinct outcomes: record absence maps to NotFound, never to
// an infrastructure error, and vice versa.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if IsNotFoundError(err) {
		return apperrors.NotFound(resource, "")
	}
	if IsDuplicateError(err) {
		return apperrors.AlreadyExists(resource).WithCause(err)
	}
	if IsConnectionError(err) {
		return apperrors.NetworkError("database", err)
	}
	return apperrors.DatabaseError(err)
}
