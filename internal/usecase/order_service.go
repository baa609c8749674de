package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Gunvolt24/agrostore/internal/domain"
	"github.com/Gunvolt24/agrostore/internal/ports"
	"github.com/Gunvolt24/agrostore/pkg/ctxmeta"
	"github.com/Gunvolt24/agrostore/pkg/metrics"
	"github.com/Gunvolt24/agrostore/pkg/validate"
)

var _ ports.OrderService = (*OrderService)(nil)

// OrderService — прикладная логика работы с заказами (без знаний о транспорте).
type OrderService struct {
	repo      ports.OrderRepository  // чтение из хранилища
	cache     ports.OrderCache       // read-through кэш
	cached    bool                   // false — кэш отключён (nopCache)
	updater   *StatusUpdater         // цепочка записи статуса
	log       ports.Logger           // логгер
	validator ports.CommandValidator // валидатор команд
}

// NewOrderService — DI-конструктор. cache == nil — работа без кэша.
func NewOrderService(
	repo ports.OrderRepository,
	cache ports.OrderCache,
	updater *StatusUpdater,
	log ports.Logger,
	validator ports.CommandValidator,
) *OrderService {
	cached := cache != nil
	if !cached {
		cache = nopCache{}
	}
	return &OrderService{
		repo:      repo,
		cache:     cache,
		cached:    cached,
		updater:   updater,
		log:       log,
		validator: validator,
	}
}

// GetOrder — получить заказ по ID: сначала из кэша, при промахе — из БД с записью в кэш.
// Отсутствующий заказ — domain.ErrOrderNotFound.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domain.ErrOrderNotFound
	}
	ctx = ctxmeta.WithOrderID(ctx, orderID)

	if order, found := s.cache.Get(ctx, orderID); found {
		s.log.Debugf(ctx, "cache hit")
		return order, nil
	}
	s.log.Debugf(ctx, "cache miss")

	start := time.Now()
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		s.log.Errorf(ctx, "repo.GetByID failed err=%v", err)
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	if setErr := s.cache.Set(ctx, order); setErr != nil {
		s.log.Warnf(ctx, "cache.Set failed err=%v", setErr)
	}

	s.log.Infof(ctx, "db fetch items=%d took=%s", len(order.Items), time.Since(start))
	return order, nil
}

// ListOrders — проксирование в репозиторий (пагинация уже нормализована на верхнем уровне).
func (s *OrderService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		s.log.Errorf(ctx, "repo.List failed status=%q limit=%d offset=%d err=%v", filter.Status, filter.Limit, filter.Offset, err)
		return nil, err
	}
	return orders, nil
}

// UpdateStatus — валидация команды и запуск цепочки StatusUpdater.
// При успехе кэш получает возвращённую запись; если способ запись не вернул, она перечитывается из БД.
// Кэш хранит запись с большим UpdatedAt, поэтому запоздавший GetOrder не откатит статус.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status domain.Status) (*domain.UpdateResult, error) {
	cmd := domain.StatusCommand{OrderID: orderID, Status: status}
	if err := s.validator.Validate(ctx, &cmd); err != nil {
		metrics.OrderStatusUpdates.WithLabelValues("none", "invalid").Inc()
		s.log.Warnf(ctx, "status command rejected order_id=%q err=%v", orderID, err)
		return &domain.UpdateResult{OrderID: orderID, Status: status, Err: err}, err
	}
	ctx = ctxmeta.WithOrderID(ctx, cmd.OrderID)

	res, err := s.updater.Update(ctx, cmd.OrderID, cmd.Status)
	if err != nil {
		return res, err
	}

	s.refreshCache(ctx, cmd.OrderID, res.Order)
	return res, nil
}

// refreshCache — положить в кэш запись после обновления.
// Удаление ключа — крайний случай: между ним и Set параллельного чтения старая запись может вернуться в кэш до TTL.
func (s *OrderService) refreshCache(ctx context.Context, orderID string, order *domain.Order) {
	if !s.cached {
		return
	}
	if order == nil {
		fresh, err := s.repo.GetByID(ctx, orderID)
		if err != nil || fresh == nil {
			s.log.Warnf(ctx, "re-read after update failed err=%v", err)
			if delErr := s.cache.Delete(ctx, orderID); delErr != nil {
				s.log.Warnf(ctx, "cache.Delete failed err=%v", delErr)
			}
			return
		}
		order = fresh
	}
	if setErr := s.cache.Set(ctx, order); setErr != nil {
		s.log.Warnf(ctx, "cache.Set failed err=%v", setErr)
	}
}

// ApplyFromMessage — команда смены статуса, пришедшая из Kafka (raw JSON).
// Шаги:
//  1. строгий парсинг JSON и валидация (validate.ErrInvalidCommand при проблемах);
//  2. та же цепочка, что и для HTTP.
func (s *OrderService) ApplyFromMessage(ctx context.Context, raw []byte) error {
	cmd, err := validate.CommandFromJSON(ctx, s.validator, raw)
	if err != nil {
		s.log.Warnf(ctx, "invalid status command err=%v", err)
		return err
	}

	res, err := s.UpdateStatus(ctx, cmd.OrderID, cmd.Status)
	if err != nil {
		return err
	}
	s.log.Infof(ctx, "status command applied order_id=%s status=%s strategy=%s", res.OrderID, res.Status, res.Strategy)
	return nil
}

// WarmUpCache — прогрев кэша последними N заказами из БД.
// Если n <= 0, прогрев не выполняется (но это не ошибка).
func (s *OrderService) WarmUpCache(ctx context.Context, n int) error {
	if n <= 0 {
		s.log.Debugf(ctx, "cache warm-up skipped: n=%d", n)
		return nil
	}

	start := time.Now()
	list, err := s.repo.LastN(ctx, n)
	if err != nil {
		s.log.Errorf(ctx, "repo.LastN failed n=%d err=%v", n, err)
		return fmt.Errorf("warm up cache: %w", err)
	}
	if warmUpErr := s.cache.WarmUp(ctx, list); warmUpErr != nil {
		s.log.Warnf(ctx, "cache.WarmUp failed err=%v", warmUpErr)
	}
	s.log.Infof(ctx, "cache warmed with %d orders in %s", len(list), time.Since(start))
	return nil
}

// IsPermanent — ошибка команды, которую бессмысленно повторять (для коммита в Kafka).
func IsPermanent(err error) bool {
	return errors.Is(err, validate.ErrInvalidCommand) ||
		errors.Is(err, domain.ErrOrderNotFound) ||
		errors.Is(err, domain.ErrStatusRejected)
}

// nopCache — заглушка для режима без кэша.
type nopCache struct{}

func (nopCache) Get(context.Context, string) (*domain.Order, bool) { return nil, false }
func (nopCache) Set(context.Context, *domain.Order) error          { return nil }
func (nopCache) Delete(context.Context, string) error              { return nil }
func (nopCache) WarmUp(context.Context, []*domain.Order) error     { return nil }
