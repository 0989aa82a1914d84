package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a unique-constraint violation on
// any of the given constraints. With no non-empty constraint any unique
// violation matches. Postgres errors are matched on SQLSTATE and constraint
// name; anything else (sqlite) falls back to the message text, which names
// the column as "table.column", so callers pass that form too.
func IsUniqueViolation(err error, constraints ...string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode && matchesConstraint(pgErr.ConstraintName, pgErr.Message, constraints)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode && matchesConstraint(pqErr.Constraint, pqErr.Message, constraints)
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return matchesConstraint("", msg, constraints)
}

func matchesConstraint(name, message string, wanted []string) bool {
	named := false
	for _, want := range wanted {
		if want == "" {
			continue
		}
		named = true
		if name == want || strings.Contains(message, want) {
			return true
		}
	}
	return !named
}
