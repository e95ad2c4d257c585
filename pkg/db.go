package pkg

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// error codes: https://www.postgresql.org/docs/current/errcodes-appendix.html

// IsUniqueViolationError reports whether err is a postgres unique
// constraint violation (duplicate email, workout day name, ...).
func IsUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// IsForeignKeyViolationError reports whether err is a postgres foreign
// key violation.
func IsForeignKeyViolationError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
