//go:build integration

package testutil

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gunvolt24/agrostore/internal/domain"
)

// UniqSuffix — короткий случайный суффикс для имён ролей, ключей и топиков.
func UniqSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// MakeOrder — мини-генератор заказа с одной позицией.
func MakeOrder(opts ...func(*domain.Order)) domain.Order {
	now := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)

	o := domain.Order{
		ID:          uuid.NewString(),
		UserID:      uuid.NewString(),
		Status:      domain.StatusPending,
		TotalAmount: 100,
		CreatedAt:   now,
		UpdatedAt:   now,
		Items: []domain.OrderItem{
			{ID: uuid.NewString(), ProductID: uuid.NewString(), ProductName: "Wheat seeds 25kg", Quantity: 1, Price: 100},
		},
	}

	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func WithUser(userID string) func(*domain.Order) {
	return func(o *domain.Order) { o.UserID = userID }
}

func WithStatus(st domain.Status) func(*domain.Order) {
	return func(o *domain.Order) { o.Status = st }
}

func WithCreatedAt(ts time.Time) func(*domain.Order) {
	return func(o *domain.Order) {
		o.CreatedAt = ts
		o.UpdatedAt = ts
	}
}

func WithItems(n int) func(*domain.Order) {
	return func(o *domain.Order) {
		o.Items = make([]domain.OrderItem, 0, n)
		o.TotalAmount = 0
		for i := 0; i < n; i++ {
			price := float64(10 * (i + 1))
			o.Items = append(o.Items, domain.OrderItem{
				ID:          uuid.NewString(),
				ProductID:   uuid.NewString(),
				ProductName: fmt.Sprintf("Fertilizer #%d", i+1),
				Quantity:    1,
				Price:       price,
			})
			o.TotalAmount += price
		}
	}
}

// InsertOrder — кладёт заказ с позициями напрямую в базу (оформление заказа вне этого сервиса).
func InsertOrder(ctx context.Context, pool *pgxpool.Pool, o domain.Order) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, o.ID, o.UserID, string(o.Status), o.TotalAmount, o.CreatedAt, o.UpdatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, it.ID, o.ID, it.ProductID, it.ProductName, it.Quantity, it.Price); err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// CreateUserRole — логин-роль с правами app_user; возвращает DSN пользовательского уровня,
// в котором app.user_id передан параметром сессии.
func CreateUserRole(ctx context.Context, pool *pgxpool.Pool, serviceDSN, userID string) (string, error) {
	role := "shopper_" + UniqSuffix()
	if _, err := pool.Exec(ctx, fmt.Sprintf(`CREATE ROLE %s LOGIN PASSWORD 'shopper' IN ROLE app_user`, role)); err != nil {
		return "", fmt.Errorf("create role: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(serviceDSN)
	if err != nil {
		return "", err
	}
	cc := cfg.ConnConfig
	dsn := fmt.Sprintf("postgres://%s:shopper@%s:%d/%s?sslmode=disable", role, cc.Host, cc.Port, cc.Database)
	if userID != "" {
		dsn += "&options=" + "-c%20app.user_id%3D" + userID
	}
	return dsn, nil
}
