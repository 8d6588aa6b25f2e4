package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"quizstake/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories react to
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateQueryCanceled        = "57014"
)

// classifyError maps driver errors onto the domain taxonomy so callers can
// tell retryable storage failures from programming errors.
func classifyError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == sqlStateSerializationFailure, pgErr.Code == sqlStateDeadlockDetected:
			return domain.NewWriteConflictError(err, "%s", msg)
		case pgErr.Code == sqlStateUniqueViolation:
			return domain.Wrap(domain.KindConflict, err, "%s", msg)
		case pgErr.Code == sqlStateLockNotAvailable, pgErr.Code == sqlStateQueryCanceled:
			return domain.NewStorageUnavailableError(err, "%s", msg)
		// connection exceptions, insufficient resources, operator intervention
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "53"), strings.HasPrefix(pgErr.Code, "57P"):
			return domain.NewStorageUnavailableError(err, "%s", msg)
		}
		return fmt.Errorf("%s: %w", msg, err)
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		pgconn.Timeout(err),
		pgconn.SafeToRetry(err),
		errors.As(err, &connectErr),
		errors.As(err, &netErr):
		return domain.NewStorageUnavailableError(err, "%s", msg)
	}

	return fmt.Errorf("%s: %w", msg, err)
}
