package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound              = errors.New("record not found")
	ErrAlreadyExists         = errors.New("record already exists")
	ErrForeignKeyViolation   = errors.New("referenced record does not exist")
	ErrInvalidData           = errors.New("invalid data")
	ErrInvalidSearchCriteria = errors.New("exactly one search criterion must be provided")
	ErrAlreadySettled        = errors.New("payment reference already settled")
	ErrSchoolWalletNotFound  = errors.New("school wallet not found")
	ErrAdminWalletNotFound   = errors.New("admin wallet not found")
)

// Postgres SQLSTATE codes the repository translates.
const (
	pgUniqueViolation       = "23505"
	pgForeignKeyViolation   = "23503"
	pgCheckViolation        = "23514"
	pgNotNullViolation      = "23502"
	pgInvalidTextRepr       = "22P02"
	pgNumericOutOfRange     = "22003"
	pgInvalidDatetime       = "22007"
	pgDatetimeFieldOverflow = "22008"
)

// translateError maps driver errors onto the store's sentinel errors.
// Errors it does not recognise are returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, pgErr.ConstraintName)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrForeignKeyViolation, pgErr.ConstraintName)
	case pgInvalidTextRepr, pgNumericOutOfRange, pgCheckViolation, pgNotNullViolation, pgInvalidDatetime, pgDatetimeFieldOverflow:
		return fmt.Errorf("%w: %s", ErrInvalidData, pgErr.Message)
	}
	return err
}
