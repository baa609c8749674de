package ports

import (
	"context"

	"github.com/Gunvolt24/agrostore/internal/domain"
)

// OrderService — сервис заказов для транспортного слоя.
type OrderService interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.Status) (*domain.UpdateResult, error)
}
