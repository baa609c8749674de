package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Gunvolt24/agrostore/internal/domain"
	"github.com/Gunvolt24/agrostore/internal/ports"
	"github.com/jackc/pgx/v5"
)

// Проверка, что OrderRepository удовлетворяет интерфейсам портов.
var (
	_ ports.OrderRepository   = (*OrderRepository)(nil)
	_ ports.OrderStatusWriter = (*OrderRepository)(nil)
)

const (
	// DefaultStatusProcedure — имя функции смены статуса в базе.
	DefaultStatusProcedure = "update_order_status"

	defaultListLimit = 20
	maxListLimit     = 100
)

const orderColumns = `id::text, user_id::text, status, total_amount::float8, created_at, updated_at`

// updated_at строго растёт даже при двух обновлениях в пределах одного тика часов.
const updateStatusSQL = `
	UPDATE orders
	SET status = $2,
		updated_at = GREATEST(now(), updated_at + interval '1 microsecond')
	WHERE id = $1
	RETURNING ` + orderColumns

// OrderRepository — реализация репозитория заказов на Postgres (pgxpool).
// pool — сервисная роль (обходит RLS), userPool — пользовательская (подчиняется RLS).
type OrderRepository struct {
	pool      DBPool
	userPool  DBPool
	procedure string
}

// Option — опция конструктора OrderRepository.
type Option func(*OrderRepository)

// WithUserPool — пул с пользовательскими правами для UpdateStatusRaw.
func WithUserPool(pool DBPool) Option {
	return func(r *OrderRepository) { r.userPool = pool }
}

// WithStatusProcedure — имя хранимой функции (можно со схемой: "public.update_order_status").
func WithStatusProcedure(name string) Option {
	return func(r *OrderRepository) {
		if name = strings.TrimSpace(name); name != "" {
			r.procedure = name
		}
	}
}

// NewOrderRepository - конструктор OrderRepository.
func NewOrderRepository(pool DBPool, opts ...Option) *OrderRepository {
	r := &OrderRepository{pool: pool, procedure: DefaultStatusProcedure}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetByID — заказ с позициями. Если не нашли (или id не uuid), возвращает (nil, nil).
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}

	if order.Items, err = loadItems(ctx, r.pool, orderID); err != nil {
		return nil, err
	}
	return order, nil
}

// List — страница заказов (новые первыми) с необязательным фильтром по статусу.
// Два запроса на страницу: базовые заказы + позиции всех заказов страницы.
func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	limit, offset := filter.Limit, filter.Offset
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	return r.queryOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, string(filter.Status), limit, offset)
}

// LastN — последние N заказов (для прогрева кэша).
func (r *OrderRepository) LastN(ctx context.Context, n int) ([]*domain.Order, error) {
	if n <= 0 {
		return nil, nil
	}

	return r.queryOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, n)
}

// UpdateStatus — UPDATE ... RETURNING с сервисными правами; позиции перечитываются в той же транзакции.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.Status) (*domain.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // после Commit — no-op (ErrTxClosed)

	order, err := scanOrder(tx.QueryRow(ctx, updateStatusSQL, orderID, string(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, classify("update order status", err)
	}

	if order.Items, err = loadItems(ctx, tx, orderID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return order, nil
}

// UpdateStatusViaProcedure — смена статуса хранимой функцией (RETURNS SETOF orders).
// Пустой результат функции означает отсутствие заказа.
func (r *OrderRepository) UpdateStatusViaProcedure(ctx context.Context, orderID string, status domain.Status) (*domain.Order, error) {
	fn := pgx.Identifier(strings.Split(r.procedure, ".")).Sanitize()

	order, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM `+fn+`($1, $2)`, orderID, string(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, classify("call "+r.procedure, err)
	}

	if order.Items, err = loadItems(ctx, r.pool, orderID); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatusRaw — UPDATE с пользовательскими правами, без RETURNING.
// Ноль затронутых строк — ошибка: при RLS строка может быть просто невидима этой роли.
func (r *OrderRepository) UpdateStatusRaw(ctx context.Context, orderID string, status domain.Status) error {
	if r.userPool == nil {
		return ErrUserPoolNotConfigured
	}

	tag, err := r.userPool.Exec(ctx, `
		UPDATE orders
		SET status = $2,
			updated_at = GREATEST(now(), updated_at + interval '1 microsecond')
		WHERE id = $1
	`, orderID, string(status))
	if err != nil {
		return classify("raw update order status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("raw update order status: no rows affected for %q", orderID)
	}
	return nil
}

// queryOrders — выполняет выборку базовых заказов и склеивает их с позициями, сохраняя порядок.
func (r *OrderRepository) queryOrders(ctx context.Context, sql string, args ...any) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []*domain.Order
		ids    []string
	)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orders rows: %w", err)
	}
	rows.Close()

	if len(orders) == 0 {
		return []*domain.Order{}, nil // пустая страница
	}

	itemsByOrder, err := loadItemsFor(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		order.Items = itemsByOrder[order.ID]
		if order.Items == nil {
			order.Items = []domain.OrderItem{}
		}
	}
	return orders, nil
}

// querier — общее у пула и транзакции.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// loadItems — позиции одного заказа.
func loadItems(ctx context.Context, q querier, orderID string) ([]domain.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id::text, product_id::text, product_name, quantity, price::float8
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("items rows: %w", err)
	}
	return items, nil
}

// loadItemsFor — позиции нескольких заказов одним запросом.
func loadItemsFor(ctx context.Context, q querier, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT order_id::text, id::text, product_id::text, product_name, quantity, price::float8
		FROM order_items
		WHERE order_id::text = ANY($1::text[])
		ORDER BY order_id, id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		byOrder[orderID] = append(byOrder[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("items rows: %w", err)
	}
	return byOrder, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order  domain.Order
		status string
	)
	if err := row.Scan(&order.ID, &order.UserID, &status, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return nil, err
	}
	order.Status = domain.Status(status)
	return &order, nil
}

func scanItem(row pgx.Row) (domain.OrderItem, error) {
	var item domain.OrderItem
	err := row.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price)
	return item, err
}
