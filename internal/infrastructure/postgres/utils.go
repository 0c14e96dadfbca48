package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/retail-suggestions/internal/domain"
)

// Querier abstrae *pgxpool.Pool y pgx.Tx para que los repos funcionen con pool o dentro de una tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	if code := pgCode(err); code != "" {
		return code == "23505"
	}
	return strings.Contains(err.Error(), "23505")
}

// isWriteConflict serialization_failure (40001) o deadlock_detected (40P01).
func isWriteConflict(err error) bool {
	switch pgCode(err) {
	case "40001", "40P01":
		return true
	}
	return false
}

// mapWriteErr traduce errores de escritura de PostgreSQL a errores de dominio.
func mapWriteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case isWriteConflict(err):
		return domain.ErrConcurrentWrite
	case isUniqueViolation(err):
		return domain.ErrDuplicate
	case pgCode(err) == "23514": // check_violation
		return domain.ErrConflict
	}
	return err
}
