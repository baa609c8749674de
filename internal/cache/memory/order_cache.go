// Package memory — in-process кэш заказов: LRU с фиксированным от записи TTL.
// Годится только для одного экземпляра сервиса: чужие обновления он не увидит.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/Gunvolt24/agrostore/internal/domain"
	"github.com/Gunvolt24/agrostore/internal/ports"
	"github.com/Gunvolt24/agrostore/pkg/metrics"
)

var _ ports.OrderCache = (*OrderCache)(nil)

type entry struct {
	orderID   string
	order     *domain.Order
	expiresAt time.Time // нулевое значение — без срока
}

// OrderCache — потокобезопасный LRU; ttl <= 0 отключает истечение.
type OrderCache struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time

	order *list.List // голова — самый свежий
	byID  map[string]*list.Element
}

func NewOrderCache(capacity int, ttl time.Duration) *OrderCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &OrderCache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		order:    list.New(),
		byID:     make(map[string]*list.Element, capacity),
	}
}

func (c *OrderCache) Get(_ context.Context, orderID string) (*domain.Order, bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.byID[orderID]
	if !ok {
		metrics.CacheOps.WithLabelValues("miss").Inc()
		return nil, false
	}

	ent := elem.Value.(*entry)
	if c.expired(ent, now) {
		c.remove(elem, "expired")
		return nil, false
	}

	c.order.MoveToFront(elem)

	metrics.CacheOps.WithLabelValues("hit").Inc()
	return cloneOrder(ent.order), true
}

// Set — запись с более ранним UpdatedAt, чем закэшированная, отбрасывается.
func (c *OrderCache) Set(_ context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return nil
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.byID[order.ID]; ok {
		ent := elem.Value.(*entry)
		if !c.expired(ent, now) && order.UpdatedAt.Before(ent.order.UpdatedAt) {
			metrics.CacheOps.WithLabelValues("stale").Inc()
			return nil
		}
		ent.order = cloneOrder(order)
		ent.expiresAt = c.deadline(now)
		c.order.MoveToFront(elem)
		return nil
	}

	c.dropExpiredTail(now)

	c.byID[order.ID] = c.order.PushFront(&entry{
		orderID:   order.ID,
		order:     cloneOrder(order),
		expiresAt: c.deadline(now),
	})

	for c.order.Len() > c.capacity {
		c.remove(c.order.Back(), "evicted")
	}
	metrics.CacheSize.Set(float64(len(c.byID)))
	return nil
}

// Delete — инвалидация записи; отсутствие записи не ошибка.
func (c *OrderCache) Delete(_ context.Context, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.byID[orderID]; ok {
		c.remove(elem, "deleted")
	}
	return nil
}

func (c *OrderCache) WarmUp(ctx context.Context, orders []*domain.Order) error {
	for _, order := range orders {
		if err := c.Set(ctx, order); err != nil {
			return err
		}
	}
	return nil
}

// Len — число записей (включая ещё не вычищенные просроченные).
func (c *OrderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// remove — вызывается под mu.
func (c *OrderCache) remove(elem *list.Element, reason string) {
	if elem == nil {
		return
	}
	delete(c.byID, elem.Value.(*entry).orderID)
	c.order.Remove(elem)

	metrics.CacheOps.WithLabelValues(reason).Inc()
	metrics.CacheSize.Set(float64(len(c.byID)))
}

// dropExpiredTail — снимает просроченные записи с хвоста до первой живой.
func (c *OrderCache) dropExpiredTail(now time.Time) {
	for back := c.order.Back(); back != nil; back = c.order.Back() {
		if !c.expired(back.Value.(*entry), now) {
			return
		}
		c.remove(back, "expired")
	}
}

func (c *OrderCache) expired(ent *entry, now time.Time) bool {
	return c.ttl > 0 && now.After(ent.expiresAt)
}

func (c *OrderCache) deadline(now time.Time) time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(c.ttl)
}

// cloneOrder — копия, чтобы изменения снаружи не затрагивали кэш.
func cloneOrder(order *domain.Order) *domain.Order {
	cp := *order
	if order.Items != nil {
		cp.Items = append([]domain.OrderItem(nil), order.Items...)
	}
	return &cp
}
