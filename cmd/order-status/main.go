package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Gunvolt24/agrostore/config"
	"github.com/Gunvolt24/agrostore/internal/app"
	"github.com/Gunvolt24/agrostore/pkg/logger"
	"github.com/Gunvolt24/agrostore/pkg/validate"
)

var errHasFailures = errors.New("some commands were not applied")

// Операторская утилита: смена статусов заказов из файла команд {"order_id","status"}.
// Отчёт — JSONL в stdout, сводка — в stderr.
func main() {
	inputPath := flag.String("in", "", "path to input (.json or .jsonl). If empty, reads JSONL from stdin.")
	formatStr := flag.String("format", "auto", "input format: auto|json|jsonl")
	dryRun := flag.Bool("dry-run", false, "validate commands only, do not touch the store")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *inputPath, validate.InputFormat(*formatStr), *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "order-status: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, inputPath string, format validate.InputFormat, dryRun bool) error {
	r := newRunner(nil, os.Stdout)

	if !dryRun {
		_ = godotenv.Load(".env.local")
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logg, cleanupLogger, err := logger.NewZapLogger(cfg.Logger.IsProd, cfg.Logger.Level)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer func() { _ = cleanupLogger() }()

		core, cleanup, err := app.NewCore(ctx, &cfg, logg)
		if err != nil {
			return err
		}
		defer cleanup()
		r.updater = core.Service
	}

	validator := validate.NewCommandValidator()

	var (
		res validate.Result
		err error
	)
	if inputPath == "" {
		res, err = validate.ProcessReader(ctx, validator, os.Stdin, format, r.handle)
	} else {
		res, err = validate.ProcessFile(ctx, validator, inputPath, format, r.handle)
	}

	fmt.Fprintf(os.Stderr, "%s, applied=%d failed=%d dry_run=%t\n", res, r.applied, r.failed, dryRun)
	if err != nil {
		return err
	}
	if res.Invalid > 0 || r.failed > 0 {
		return errHasFailures
	}
	return nil
}
