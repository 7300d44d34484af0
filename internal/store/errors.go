package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorKind classifies a store failure.
type ErrorKind string

const (
	// KindConnection covers dial failures and dropped connections.
	KindConnection ErrorKind = "connection"
	// KindConstraint covers integrity constraint violations.
	KindConstraint ErrorKind = "constraint_violation"
	// KindUnavailable covers server shutdown and resource exhaustion.
	KindUnavailable ErrorKind = "unavailable"
)

// StoreError is a typed persistence failure. Failures are always surfaced to
// the caller so the pipeline can decide whether to still attempt delivery.
type StoreError struct {
	Kind ErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure (%s): %v", e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// classify wraps a pgx error into a StoreError using SQLSTATE classes:
// 08 connection exceptions, 23 integrity violations, 53/57 resource and
// operator intervention errors.
func classify(op string, err error) *StoreError {
	wrapped := fmt.Errorf("%s: %w", op, err)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			return &StoreError{Kind: KindConstraint, Err: wrapped}
		case strings.HasPrefix(pgErr.Code, "08"):
			return &StoreError{Kind: KindConnection, Err: wrapped}
		case strings.HasPrefix(pgErr.Code, "53"), strings.HasPrefix(pgErr.Code, "57"):
			return &StoreError{Kind: KindUnavailable, Err: wrapped}
		default:
			return &StoreError{Kind: KindUnavailable, Err: wrapped}
		}
	}

	// Anything that never reached the server is a connection problem.
	return &StoreError{Kind: KindConnection, Err: wrapped}
}
