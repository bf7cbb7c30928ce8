package repository

import (
	"errors"
	"fmt"
	"strings"

	"catalog-admin/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the repositories translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgDataExceptionClass  = "22"
)

var (
	ErrCategoryNotFound      = fmt.Errorf("category %w", domain.ErrNotFound)
	ErrCategoryAlreadyExists = fmt.Errorf("%w: category with this name already exists", domain.ErrConflict)
	ErrCategoryInUse         = fmt.Errorf("%w: category still has products", domain.ErrConflict)

	ErrProductNotFound  = fmt.Errorf("product %w", domain.ErrNotFound)
	ErrSKUAlreadyExists = fmt.Errorf("%w: product with this sku already exists", domain.ErrConflict)
	ErrUnknownCategory  = fmt.Errorf("%w: category does not exist", domain.ErrInvalidInput)

	ErrValueOutOfRange = fmt.Errorf("%w: value does not fit the column", domain.ErrInvalidInput)
)

func pgErrorCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isUniqueViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgForeignKeyViolation
}

// isDataException reports SQLSTATE class 22 errors such as numeric overflow
// or an over-long string.
func isDataException(err error) bool {
	code, _ := pgErrorCode(err)
	return strings.HasPrefix(code, pgDataExceptionClass)
}

// escapeLike escapes the LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
