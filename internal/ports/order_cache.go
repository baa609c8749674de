package ports

import (
	"context"

	"github.com/Gunvolt24/agrostore/internal/domain"
)

// OrderCache — интерфейс кэша заказов.
// Требования к реализации: потокобезопасность; возврат копий сущности.
type OrderCache interface {
	// Get — вернуть заказ по ID; (order, true) при попадании, (nil, false) при промахе/истечении.
	Get(ctx context.Context, orderID string) (*domain.Order, bool)

	// Set — сохранить/обновить заказ в кэше; запись старше закэшированной (по UpdatedAt) игнорируется.
	Set(ctx context.Context, order *domain.Order) error

	// Delete — убрать заказ из кэша (после обновления без возвращённой записи).
	Delete(ctx context.Context, orderID string) error

	// WarmUp — массовая загрузка кэша (например, при старте).
	WarmUp(ctx context.Context, orders []*domain.Order) error
}
