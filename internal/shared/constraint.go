package shared

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgExclusionViolation  = "23P01"
	pgForeignKeyViolation = "23503"
)

// ConstraintMessages maps database constraint names to validation messages.
type ConstraintMessages map[string]string

// MapConstraint turns unique and exclusion violations into validation errors and
// foreign key violations into integrity errors. Other errors are returned as is.
func MapConstraint(err error, messages ConstraintMessages) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	msg, known := messages[pgErr.ConstraintName]
	switch pgErr.Code {
	case pgUniqueViolation, pgExclusionViolation:
		if !known {
			msg = "Duplicate or overlapping record"
		}
		return &Error{Kind: KindValidation, Message: msg, Err: err}
	case pgForeignKeyViolation:
		if !known {
			msg = "Record is referenced by other records"
		}
		return &Error{Kind: KindIntegrity, Message: msg, Err: err}
	}
	return err
}
