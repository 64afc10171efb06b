package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the store reacts to.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
)

func hasPGCode(err error, codes ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	for _, c := range codes {
		if pgErr.Code == c {
			return true
		}
	}
	return false
}

// IsTransient reports contention errors that succeed when retried:
// serialization failure, deadlock and lock timeout.
func IsTransient(err error) bool {
	return hasPGCode(err, codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable)
}

// IsUniqueViolation reports a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return hasPGCode(err, codeUniqueViolation)
}

// ConstraintName returns the violated constraint, if any.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// Classify maps an error onto a low-cardinality reason for metrics and logs.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case hasPGCode(err, codeSerializationFailure):
		return "serialization_failure"
	case hasPGCode(err, codeDeadlockDetected):
		return "deadlock"
	case hasPGCode(err, codeLockNotAvailable):
		return "lock_timeout"
	case IsUniqueViolation(err):
		return "unique_violation"
	default:
		return "unknown"
	}
}
