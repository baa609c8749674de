package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver name = "pgx"
	"github.com/joho/godotenv"

	"github.com/Gunvolt24/agrostore/config"
	"github.com/Gunvolt24/agrostore/migrations"
)

// Миграции схемы заказов: migrate [-dsn DSN] up|down|status|version|redo|reset
func main() {
	dsn := flag.String("dsn", "", "service DSN (default: ORDER_POSTGRES_SERVICE_DSN)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-dsn DSN] up|down|status|version|redo|reset [args]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*dsn, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(dsn, command string, args []string) error {
	_ = godotenv.Load(".env.local")

	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dsn = cfg.Postgres.ServiceDSN
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	return migrations.Run(context.Background(), db, command, args...)
}
