package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gunvolt24/agrostore/config"
	cachemem "github.com/Gunvolt24/agrostore/internal/cache/memory"
	cacheredis "github.com/Gunvolt24/agrostore/internal/cache/redis"
	"github.com/Gunvolt24/agrostore/internal/ports"
	"github.com/Gunvolt24/agrostore/internal/repo/postgres"
	"github.com/Gunvolt24/agrostore/internal/usecase"
	"github.com/Gunvolt24/agrostore/pkg/validate"
)

// Core — доменное ядро без транспорта: пулы, репозиторий, кэш, цепочка записи статуса, сервис.
// Используется сервером и операторской CLI.
type Core struct {
	Repo    *postgres.OrderRepository
	Service *usecase.OrderService
}

// NewCore — собирает ядро; Cleanup закрывает пулы и соединение с кэшем.
func NewCore(ctx context.Context, cfg *config.Config, logg ports.Logger) (*Core, Cleanup, error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Сервисный пул (обходит RLS).
	servicePool, err := postgres.NewPool(ctx, cfg.Postgres.ServiceDSN, cfg.Postgres.MaxConns,
		postgres.WithApplicationName(cfg.Postgres.AppName+"-service"))
	if err != nil {
		return nil, func() {}, fmt.Errorf("service pool: %w", err)
	}
	closers = append(closers, servicePool.Close)

	opts := []postgres.Option{postgres.WithStatusProcedure(cfg.Updater.Procedure)}

	// Пользовательский пул (подчиняется RLS) — только для третьей попытки.
	rawFallback := cfg.Updater.RawFallback
	if cfg.Postgres.UserDSN != "" {
		userPool, uErr := postgres.NewPool(ctx, cfg.Postgres.UserDSN, cfg.Postgres.MaxConns,
			postgres.WithApplicationName(cfg.Postgres.AppName+"-user"))
		if uErr != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("user pool: %w", uErr)
		}
		closers = append(closers, userPool.Close)
		opts = append(opts, postgres.WithUserPool(userPool))
	} else if rawFallback {
		logg.Infof(ctx, "raw fallback disabled: user DSN is not configured")
		rawFallback = false
	}

	orderCache, closeCache, err := NewOrderCache(ctx, cfg.Cache)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	closers = append(closers, closeCache)

	repo := postgres.NewOrderRepository(servicePool, opts...)
	updater := usecase.NewStatusUpdater(repo, logg, usecase.UpdaterConfig{
		RawFallback:    rawFallback,
		AttemptTimeout: cfg.Updater.AttemptTimeout,
	})
	service := usecase.NewOrderService(repo, orderCache, updater, logg, validate.NewCommandValidator())

	logg.Infof(ctx, "order core ready cache=%s procedure=%s raw_fallback=%t", cfg.Cache.Backend, cfg.Updater.Procedure, rawFallback)
	return &Core{Repo: repo, Service: service}, cleanup, nil
}

// NewOrderCache — кэш по имени бэкенда: none | redis | memory.
// Для none (и пустого значения) возвращается nil-интерфейс: сервис работает без кэша.
// memory не видит обновлений других экземпляров, поэтому годится только для одной реплики.
func NewOrderCache(ctx context.Context, cfg config.Cache) (ports.OrderCache, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "memory":
		return cachemem.NewOrderCache(cfg.Capacity, cfg.TTL), func() {}, nil
	case "redis":
		client, err := cacheredis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, func() {}, fmt.Errorf("redis cache: %w", err)
		}
		return cacheredis.NewOrderCache(client, cfg.TTL), func() { _ = client.Close() }, nil
	case "", "none":
		return nil, func() {}, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
