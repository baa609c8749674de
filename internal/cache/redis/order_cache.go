// Package redis — общий для нескольких экземпляров сервиса кэш заказов поверх Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Gunvolt24/agrostore/internal/domain"
	"github.com/Gunvolt24/agrostore/internal/ports"
	"github.com/Gunvolt24/agrostore/pkg/metrics"
)

var _ ports.OrderCache = (*OrderCache)(nil)

const defaultKeyPrefix = "agrostore:order:"

const fieldOrder = "order"

// setIfNotOlder — записать заказ, если его версия не меньше сохранённой.
// KEYS[1] — ключ заказа; ARGV: версия, JSON, TTL в мс (0 — без срока).
var setIfNotOlder = goredis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'order', ARGV[2])
if tonumber(ARGV[3]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// OrderCache — заказы в hash под ключами <prefix><id>: поле order (JSON) и v (UpdatedAt в мкс).
// TTL отсчитывается от записи; запись с более старой версией не перетирает свежую.
type OrderCache struct {
	client goredis.UniversalClient
	ttl    time.Duration
	prefix string
}

type Option func(*OrderCache)

// WithKeyPrefix — свой префикс ключей (тесты, несколько окружений в одном Redis).
func WithKeyPrefix(prefix string) Option {
	return func(c *OrderCache) { c.prefix = prefix }
}

func NewOrderCache(client goredis.UniversalClient, ttl time.Duration, opts ...Option) *OrderCache {
	c := &OrderCache{client: client, ttl: ttl, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClient — клиент Redis с проверкой соединения.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Get — ошибки Redis трактуются как промах: кэш не должен ронять чтение.
func (c *OrderCache) Get(ctx context.Context, orderID string) (*domain.Order, bool) {
	raw, err := c.client.HGet(ctx, c.key(orderID), fieldOrder).Bytes()
	if errors.Is(err, goredis.Nil) {
		metrics.CacheOps.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.CacheOps.WithLabelValues("error").Inc()
		return nil, false
	}

	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		// битая запись — убираем, чтобы следующий запрос перечитал из базы
		_ = c.client.Del(ctx, c.key(orderID)).Err()
		metrics.CacheOps.WithLabelValues("error").Inc()
		return nil, false
	}

	metrics.CacheOps.WithLabelValues("hit").Inc()
	return &order, true
}

// Set — атомарное сравнение версий на стороне Redis.
func (c *OrderCache) Set(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return nil
	}
	keys, args, err := c.setArgs(order)
	if err != nil {
		return err
	}
	stored, err := setIfNotOlder.Run(ctx, c.client, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	if stored == 0 {
		metrics.CacheOps.WithLabelValues("stale").Inc()
	}
	return nil
}

func (c *OrderCache) Delete(ctx context.Context, orderID string) error {
	if err := c.client.Del(ctx, c.key(orderID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	metrics.CacheOps.WithLabelValues("deleted").Inc()
	return nil
}

// WarmUp — одна пачка команд через pipeline; версии сравниваются тем же скриптом.
func (c *OrderCache) WarmUp(ctx context.Context, orders []*domain.Order) error {
	if err := setIfNotOlder.Load(ctx, c.client).Err(); err != nil {
		return fmt.Errorf("redis script load: %w", err)
	}

	pipe := c.client.Pipeline()
	queued := 0
	for _, order := range orders {
		if order == nil || order.ID == "" {
			continue
		}
		keys, args, err := c.setArgs(order)
		if err != nil {
			return err
		}
		setIfNotOlder.EvalSha(ctx, pipe, keys, args...)
		queued++
	}
	if queued == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis warmup: %w", err)
	}
	return nil
}

func (c *OrderCache) setArgs(order *domain.Order) ([]string, []any, error) {
	raw, err := json.Marshal(order)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal order %s: %w", order.ID, err)
	}
	return []string{c.key(order.ID)}, []any{version(order), raw, c.ttl.Milliseconds()}, nil
}

// version — UpdatedAt в микросекундах: столько же даёт timestamptz, и число точно влезает в double Lua.
func version(order *domain.Order) int64 {
	if order.UpdatedAt.IsZero() {
		return 0
	}
	return order.UpdatedAt.UnixMicro()
}

func (c *OrderCache) key(orderID string) string { return c.prefix + orderID }
