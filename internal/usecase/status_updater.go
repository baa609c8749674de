package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"

	"github.com/Gunvolt24/agrostore/internal/domain"
	"github.com/Gunvolt24/agrostore/internal/ports"
	"github.com/Gunvolt24/agrostore/pkg/ctxmeta"
	"github.com/Gunvolt24/agrostore/pkg/metrics"
	"github.com/Gunvolt24/agrostore/pkg/telemetry"
	"github.com/Gunvolt24/agrostore/pkg/validate"
)

// UpdaterConfig — настройки цепочки попыток.
type UpdaterConfig struct {
	// RawFallback — включить третью попытку с пользовательскими правами.
	RawFallback bool
	// AttemptTimeout — предел одной попытки; <= 0 — без отдельного предела.
	AttemptTimeout time.Duration
}

// StatusUpdater — смена статуса заказа упорядоченной цепочкой способов:
// primary -> procedure -> raw (если включён). Следующий способ пробуется только после ошибки предыдущего.
// «Заказ не найден», «статус отклонён хранилищем» и отмена контекста завершают цепочку сразу.
type StatusUpdater struct {
	writer ports.OrderStatusWriter
	log    ports.Logger
	tracer trace.Tracer
	cfg    UpdaterConfig
}

// NewStatusUpdater — DI-конструктор.
func NewStatusUpdater(writer ports.OrderStatusWriter, log ports.Logger, cfg UpdaterConfig) *StatusUpdater {
	return &StatusUpdater{
		writer: writer,
		log:    log,
		tracer: telemetry.Tracer(),
		cfg:    cfg,
	}
}

// tier — один способ записи статуса.
type tier struct {
	strategy domain.UpdateStrategy
	run      func(ctx context.Context) (*domain.Order, error)
}

func (u *StatusUpdater) tiers(orderID string, status domain.Status) []tier {
	tiers := []tier{
		{domain.StrategyPrimary, func(ctx context.Context) (*domain.Order, error) {
			return u.writer.UpdateStatus(ctx, orderID, status)
		}},
		{domain.StrategyProcedure, func(ctx context.Context) (*domain.Order, error) {
			return u.writer.UpdateStatusViaProcedure(ctx, orderID, status)
		}},
	}
	if u.cfg.RawFallback {
		tiers = append(tiers, tier{domain.StrategyRaw, func(ctx context.Context) (*domain.Order, error) {
			return nil, u.writer.UpdateStatusRaw(ctx, orderID, status)
		}})
	}
	return tiers
}

// Update — результат возвращается всегда, в том числе вместе с ошибкой.
// Ошибка при исчерпании цепочки оборачивает domain.ErrUpdateFailed и называет последний способ;
// все ошибки попыток собраны в UpdateResult.Err.
func (u *StatusUpdater) Update(ctx context.Context, orderID string, status domain.Status) (*domain.UpdateResult, error) {
	res := &domain.UpdateResult{OrderID: orderID, Status: status}
	if orderID == "" || status == "" {
		res.Err = fmt.Errorf("%w: order_id and status are required", validate.ErrInvalidCommand)
		return res, res.Err
	}

	ctx = ctxmeta.WithOrderID(ctx, orderID)
	ctx, span := u.tracer.Start(ctx, "order.update", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", string(status)),
	))
	defer span.End()
	if src, ok := ctxmeta.SourceFromContext(ctx); ok {
		span.SetAttributes(attribute.String("order.update.source", string(src)))
	}

	var errs error
	for i, t := range u.tiers(orderID, status) {
		order, attempt := u.attempt(ctx, t, i > 0, status)
		res.Attempts = append(res.Attempts, attempt)

		if attempt.Err == nil {
			res.OK = true
			res.Strategy = t.strategy
			res.Order = order

			span.SetAttributes(
				attribute.String("order.update.strategy", string(t.strategy)),
				attribute.Bool("order.update.fallback", res.FallbackUsed()),
			)
			metrics.OrderStatusUpdates.WithLabelValues(string(t.strategy), "ok").Inc()
			if res.FallbackUsed() {
				u.log.Warnf(ctx, "order status updated via fallback strategy=%s attempts=%d status=%s",
					t.strategy, len(res.Attempts), status)
			} else {
				u.log.Infof(ctx, "order status updated strategy=%s status=%s", t.strategy, status)
			}
			return res, nil
		}

		errs = multierr.Append(errs, fmt.Errorf("%s: %w", t.strategy, attempt.Err))

		if outcome, stop := terminal(ctx, attempt.Err); stop {
			res.Err = errs
			span.SetStatus(codes.Error, attempt.Err.Error())
			metrics.OrderStatusUpdates.WithLabelValues("none", outcome).Inc()
			u.log.Warnf(ctx, "order status update stopped strategy=%s outcome=%s err=%v", t.strategy, outcome, attempt.Err)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, fmt.Errorf("%s attempt: %w", t.strategy, ctxErr)
			}
			return res, fmt.Errorf("%s attempt: %w", t.strategy, attempt.Err)
		}
	}

	res.Err = errs
	last := res.Attempts[len(res.Attempts)-1]
	err := fmt.Errorf("%w: %s attempt failed: %w", domain.ErrUpdateFailed, last.Strategy, last.Err)

	span.RecordError(errs)
	span.SetStatus(codes.Error, err.Error())
	metrics.OrderStatusUpdates.WithLabelValues("none", "failed").Inc()
	u.log.Errorf(ctx, "order status update failed attempts=%d err=%v", len(res.Attempts), errs)
	return res, err
}

// attempt — одна попытка: отдельный span, предел по времени, логи до/после и метрики.
func (u *StatusUpdater) attempt(ctx context.Context, t tier, fallback bool, status domain.Status) (*domain.Order, domain.Attempt) {
	ctx, span := u.tracer.Start(ctx, "order.update."+string(t.strategy), trace.WithAttributes(
		attribute.String("order.update.strategy", string(t.strategy)),
		attribute.Bool("order.update.fallback", fallback),
	))
	defer span.End()

	if u.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.cfg.AttemptTimeout)
		defer cancel()
	}

	u.log.Infof(ctx, "order status update attempt strategy=%s fallback=%t", t.strategy, fallback)
	u.log.Debugf(ctx, "order status update params strategy=%s status=%q", t.strategy, status)

	start := time.Now()
	order, err := t.run(ctx)
	took := time.Since(start)

	metrics.OrderStatusAttemptDuration.WithLabelValues(string(t.strategy)).Observe(took.Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.OrderStatusAttempts.WithLabelValues(string(t.strategy), "error").Inc()
		u.log.Warnf(ctx, "order status update attempt failed strategy=%s took=%s err=%v", t.strategy, took, err)
		return nil, domain.Attempt{Strategy: t.strategy, Err: err, Duration: took}
	}

	metrics.OrderStatusAttempts.WithLabelValues(string(t.strategy), "ok").Inc()
	u.log.Infof(ctx, "order status update attempt ok strategy=%s took=%s", t.strategy, took)
	if order != nil {
		u.log.Debugf(ctx, "order status update record strategy=%s order=%+v", t.strategy, *order)
	}
	return order, domain.Attempt{Strategy: t.strategy, Duration: took}
}

// terminal — ошибки, после которых следующие способы не пробуются.
// ctx — родительский контекст: истечение предела одной попытки цепочку не прерывает.
func terminal(ctx context.Context, err error) (string, bool) {
	switch {
	case ctx.Err() != nil:
		return "cancelled", true
	case errors.Is(err, domain.ErrOrderNotFound):
		return "not_found", true
	case errors.Is(err, domain.ErrStatusRejected):
		return "rejected", true
	}
	return "", false
}
