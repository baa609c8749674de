package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Gunvolt24/agrostore/internal/domain"
	"github.com/Gunvolt24/agrostore/internal/ports/mocks"
	"github.com/Gunvolt24/agrostore/internal/usecase"
	"github.com/Gunvolt24/agrostore/pkg/logger"
	"github.com/Gunvolt24/agrostore/pkg/metrics"
	"github.com/Gunvolt24/agrostore/pkg/validate"
)

const orderID = "9b2f8a0e-3c1d-4d5e-8f70-1a2b3c4d5e6f"

var errTransient = errors.New("connection reset by peer")

func observedLogger() (*logger.ZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.New(zap.New(core), false), logs
}

func updatedOrder(st domain.Status) *domain.Order {
	return &domain.Order{ID: orderID, Status: st, UpdatedAt: time.Now()}
}

// Основной способ успешен — запасные не вызываются
func TestUpdate_PrimarySucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	writer := mocks.NewMockOrderStatusWriter(ctrl)

	writer.EXPECT().UpdateStatus(gomock.Any(), orderID, domain.StatusShipped).Return(updatedOrder(domain.StatusShipped), nil)
	writer.EXPECT().UpdateStatusViaProcedure(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	writer.EXPECT().UpdateStatusRaw(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	u := usecase.NewStatusUpdater(writer, noopLogger{}, usecase.UpdaterConfig{RawFallback: true})

	res, err := u.Update(context.Background(), orderID, domain.StatusShipped)
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, domain.StrategyPrimary, res.Strategy)
	require.False(t, res.FallbackUsed())
	require.Equal(t, domain.StatusShipped, res.Order.Status)
	require.Len(t, res.Attempts, 1)
	require.NoError(t, res.Err)
}

// Основной способ упал, процедура успешна — успех из запасного способа, факт виден в логах, трейсе и метриках
func TestUpdate_ProcedureFallback_Observable(t *testing.T) {
	ctrl := gomock.NewController(t)
	writer := mocks.NewMockOrderStatusWriter(ctrl)

	gomock.InOrder(
		writer.EXPECT().UpdateStatus(gomock.Any(), orderID, domain.StatusDelivered).Return(nil, errTransient),
		writer.EXPECT().UpdateStatusViaProcedure(gomock.Any(), orderID, domain.StatusDelivered).Return(updatedOrder(domain.StatusDelivered), nil),
	)

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	log, logs := observedLogger()
	u := usecase.NewStatusUpdater(writer, log, usecase.UpdaterConfig{})

	okBefore := testutil.ToFloat64(metrics.OrderStatusUpdates.WithLabelValues("procedure", "ok"))
	errBefore := testutil.ToFloat64(metrics.OrderStatusAttempts.WithLabelValues("primary", "error"))

	res, err := u.Update(context.Background(), orderID, domain.StatusDelivered)
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, domain.StrategyProcedure, res.Strategy)
	require.True(t, res.FallbackUsed())
	require.Len(t, res.Attempts, 2)
	require.ErrorIs(t, res.Attempts[0].Err, errTransient)
	require.NoError(t, res.Attempts[1].Err)

	// метрики
	require.Equal(t, okBefore+1, testutil.ToFloat64(metrics.OrderStatusUpdates.WithLabelValues("procedure", "ok")))
	require.Equal(t, errBefore+1, testutil.ToFloat64(metrics.OrderStatusAttempts.WithLabelValues("primary", "error")))

	// логи: запасной способ и order_id в полях
	fallbackLogs := logs.FilterMessageSnippet("via fallback strategy=procedure").All()
	require.Len(t, fallbackLogs, 1)
	require.Equal(t, zapcore.WarnLevel, fallbackLogs[0].Level)
	require.Equal(t, orderID, fallbackLogs[0].ContextMap()["order_id"])

	// трейс: отдельный span на каждую попытку с атрибутом fallback
	spans := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range sr.Ended() {
		spans[s.Name()] = s
	}
	require.Contains(t, spans, "order.update.primary")
	require.Contains(t, spans, "order.update.procedure")
	require.Contains(t, spans, "order.update")
	require.Contains(t, spans["order.update.procedure"].Attributes(), attribute.Bool("order.update.fallback", true))
	require.Contains(t, spans["order.update"].Attributes(), attribute.String("order.update.strategy", "procedure"))
}

// Оба способа упали (raw выключен) — ошибка с непустым сообщением и последним способом
func TestUpdate_AllTiersFail_RawDisabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	writer := mocks.NewMockOrderStatusWriter(ctrl)

	procErr := errors.New("function update_order_status does not exist")
	writer.EXPECT().UpdateStatus(gomock.Any(), orderID, domain.StatusShipped).Return(nil, errTransient)
	writer.EXPECT().UpdateStatusViaProcedure(gomock.Any(), orderID, domain.StatusShipped).Return(nil, procErr)
	writer.EXPECT().UpdateStatusRaw(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	u := usecase.NewStatusUpdater(writer, noopLogger{}, usecase.UpdaterConfig{RawFallback: false})

	res, err := u.Update(context.Background(), orderID, domain.StatusShipped)
	require.ErrorIs(t, err, domain.ErrUpdateFailed)
	require.ErrorIs(t, err, procErr)
	require.Contains(t, err.Error(), "procedure attempt failed")
	require.NotEmpty(t, err.Error())

	require.False(t, res.OK)
	require.Empty(t, res.Strategy)
	require.Nil(t, res.Order)
	require.Len(t, res.Attempts, 2)
	require.Len(t, multierr.Errors(res.Err), 2)
	require.True(t, strings.HasPrefix(multierr.Errors(res.Err)[0].Error(), "primary: "))
}

func TestUpdate_RawFallback_Succeeds_NoRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	writer := mocks.NewMockOrderStatusWriter(ctrl)

	gomock.InOrder(
		writer.EXPECT().UpdateStatus(gomock.Any(), orderID, domain.StatusCancelled).Return(nil, errTransient),
		writer.EXPECT().UpdateStatusViaProcedure(gomock.Any(), orderID, domain.StatusCancelled).Return(nil, errTransient),
		writer.EXPECT().UpdateStatusRaw(gomock.Any(), orderID, domain.StatusCancelled).Return(nil),
	)

	u := usecase.NewStatusUpdater(writer, noopLogger{}, usecase.UpdaterConfig{RawFallback: true})

	res, err := u.Update(context.Background(), orderID, domain.StatusCancelled)
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, domain.StrategyRaw, res.Strategy)
	require.Nil(t, res.Order)
	require.Len(t, res.Attempts, 3)
}

func TestUpdate_AllThreeFail_NamesRaw(t *testing.T) {
	ctrl := gomock.NewController(t)
	writer := mocks.NewMockOrderStatusWriter(ctrl)

	writer.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errTransient)
	writer.EXPECT().UpdateStatusViaProcedure(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errTransient)
	writer.EXPECT().UpdateStatusRaw(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("raw update order status: no rows affected"))

	u := usecase.NewStatusUpdater(writer, noopLogger{}, usecase.UpdaterConfig{RawFallback: true})

	failedBefore := testutil.ToFloat64(metrics.OrderStatusUpdates.WithLabelValues("none", "failed"))

	res, err := u.Update(context.Background(), orderID, domain.StatusShipped)
	require.ErrorIs(t, err, domain.ErrUpdateFailed)
	require.Contains(t, err.Error(), "raw attempt failed")
	require.Contains(t, err.Error(), "no rows affected")
	require.Len(t, multierr.Errors(res.Err), 3)
	require.Equal(t, failedBefore+1, testutil.ToFloat64(metrics.OrderStatusUpdates.WithLabelValues("none", "failed")))
}

// Отсутствующий заказ — терминально, без запасных способов
func TestUpdate_NotFound_IsTerminal(t *testing.T) {
	ctrl := gomock.NewController(t)
	writer := mocks.NewMockOrderStatusWriter(ctrl)

	writer.EXPECT().UpdateStatus(gomock.Any(), orderID, domain.StatusShipped).Return(nil, domain.ErrOrderNotFound)
	writer.EXPECT().UpdateStatusViaProcedure(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	writer.EXPECT().UpdateStatusRaw(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	u := usecase.NewStatusUpdater(writer, noopLogger{}, usecase.UpdaterConfig{RawFallback: true})

	res, err := u.Update(context.Background(), orderID, domain.StatusShipped)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	require.NotErrorIs(t, err, domain.ErrUpdateFailed)
	require.False(t, res.OK)
	require.Len(t, res.Attempts, 1)
}

func TestUpdate_StatusRejected_IsTerminal(t *testing.T) {
	ctrl := gomock.NewController(t)
	writer := mocks.NewMockOrderStatusWriter(ctrl)

	rejected := errors.Join(domain.ErrStatusRejected, errors.New(`violates check constraint "orders_status_check"`))
	writer.EXPECT().UpdateStatus(gomock.Any(), orderID, domain.Status("lost")).Return(nil, rejected)
	writer.EXPECT().UpdateStatusViaProcedure(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	u := usecase.NewStatusUpdater(writer, noopLogger{}, usecase.UpdaterConfig{})

	_, err := u.Update(context.Background(), orderID, domain.Status("lost"))
	require.ErrorIs(t, err, domain.ErrStatusRejected)
	require.NotErrorIs(t, err, domain.ErrUpdateFailed)
}

// Предел одной попытки не прерывает цепочку
func TestUpdate_AttemptTimeout_FallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	writer := mocks.NewMockOrderStatusWriter(ctrl)

	writer.EXPECT().UpdateStatus(gomock.Any(), orderID, domain.StatusShipped).
		DoAndReturn(func(ctx context.Context, _ string, _ domain.Status) (*domain.Order, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	writer.EXPECT().UpdateStatusViaProcedure(gomock.Any(), orderID, domain.StatusShipped).
		DoAndReturn(func(ctx context.Context, _ string, _ domain.Status) (*domain.Order, error) {
			if _, ok := ctx.Deadline(); !ok {
				t.Errorf("attempt context must carry a deadline")
			}
			return updatedOrder(domain.StatusShipped), nil
		})

	u := usecase.NewStatusUpdater(writer, noopLogger{}, usecase.UpdaterConfig{AttemptTimeout: 20 * time.Millisecond})

	res, err := u.Update(context.Background(), orderID, domain.StatusShipped)
	require.NoError(t, err)
	require.Equal(t, domain.StrategyProcedure, res.Strategy)
	require.ErrorIs(t, res.Attempts[0].Err, context.DeadlineExceeded)
}

// Отмена родительского контекста — терминально
func TestUpdate_ParentCancelled_Stops(t *testing.T) {
	ctrl := gomock.NewController(t)
	writer := mocks.NewMockOrderStatusWriter(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	writer.EXPECT().UpdateStatus(gomock.Any(), orderID, domain.StatusShipped).
		DoAndReturn(func(context.Context, string, domain.Status) (*domain.Order, error) {
			cancel()
			return nil, context.Canceled
		})
	writer.EXPECT().UpdateStatusViaProcedure(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	u := usecase.NewStatusUpdater(writer, noopLogger{}, usecase.UpdaterConfig{RawFallback: true})

	_, err := u.Update(ctx, orderID, domain.StatusShipped)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, domain.ErrUpdateFailed)
}

func TestUpdate_EmptyInput_NoStoreCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	writer := mocks.NewMockOrderStatusWriter(ctrl)

	u := usecase.NewStatusUpdater(writer, noopLogger{}, usecase.UpdaterConfig{RawFallback: true})

	for _, tc := range []struct {
		id string
		st domain.Status
	}{{"", domain.StatusShipped}, {orderID, ""}} {
		res, err := u.Update(context.Background(), tc.id, tc.st)
		require.ErrorIs(t, err, validate.ErrInvalidCommand)
		require.False(t, res.OK)
		require.Empty(t, res.Attempts)
	}
}

// Параметры пишутся только на уровне debug
func TestUpdate_PayloadLoggedAtDebugOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	writer := mocks.NewMockOrderStatusWriter(ctrl)
	writer.EXPECT().UpdateStatus(gomock.Any(), orderID, domain.StatusShipped).Return(updatedOrder(domain.StatusShipped), nil)

	log, logs := observedLogger()
	u := usecase.NewStatusUpdater(writer, log, usecase.UpdaterConfig{})

	_, err := u.Update(context.Background(), orderID, domain.StatusShipped)
	require.NoError(t, err)

	for _, e := range logs.All() {
		if strings.Contains(e.Message, "params") || strings.Contains(e.Message, "record") {
			require.Equal(t, zapcore.DebugLevel, e.Level, "payload log %q must be debug", e.Message)
		}
	}
	require.NotEmpty(t, logs.FilterMessageSnippet("order status update record").All())
}
