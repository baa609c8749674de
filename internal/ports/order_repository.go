package ports

import (
	"context"

	"github.com/Gunvolt24/agrostore/internal/domain"
)

// OrderRepository — чтение заказов из хранилища.
type OrderRepository interface {
	// GetByID — заказ с позициями; (nil, nil), если записи нет.
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
	LastN(ctx context.Context, n int) ([]*domain.Order, error)
}

// OrderStatusWriter — способы записи статуса в хранилище.
// Каждый метод — отдельная попытка; порядок попыток определяет usecase.StatusUpdater.
type OrderStatusWriter interface {
	// UpdateStatus — прямой UPDATE ... RETURNING; возвращает обновлённый заказ.
	UpdateStatus(ctx context.Context, orderID string, status domain.Status) (*domain.Order, error)
	// UpdateStatusViaProcedure — то же через хранимую процедуру.
	UpdateStatusViaProcedure(ctx context.Context, orderID string, status domain.Status) (*domain.Order, error)
	// UpdateStatusRaw — UPDATE без RETURNING; запись не возвращается.
	UpdateStatusRaw(ctx context.Context, orderID string, status domain.Status) error
}
