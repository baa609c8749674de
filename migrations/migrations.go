// Package migrations — SQL-миграции схемы заказов, встроенные в бинарь.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// Run — выполняет команду goose (up, down, status, version, redo, reset) над встроенными миграциями.
func Run(ctx context.Context, db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, ".", args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// Up — применить все миграции.
func Up(ctx context.Context, db *sql.DB) error {
	return Run(ctx, db, "up")
}
