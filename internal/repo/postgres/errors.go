package postgres

import (
	"errors"
	"fmt"

	"github.com/Gunvolt24/agrostore/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

// Коды SQLSTATE, которые меняют смысл ошибки.
const (
	sqlStateInvalidTextRepresentation = "22P02" // id не является корректным uuid
	sqlStateCheckViolation            = "23514" // статус не прошёл CHECK
)

// ErrUserPoolNotConfigured — пул с пользовательскими правами не настроен.
var ErrUserPoolNotConfigured = errors.New("user-scoped pool is not configured")

// classify — переводит ошибки Postgres в доменные.
// Остальные ошибки возвращаются обёрнутыми в op без изменения.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateInvalidTextRepresentation:
			return fmt.Errorf("%s: %w", op, domain.ErrOrderNotFound)
		case sqlStateCheckViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrStatusRejected, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isInvalidID — запрос упал из-за синтаксиса идентификатора.
func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateInvalidTextRepresentation
}
