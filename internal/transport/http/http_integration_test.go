//go:build integration

package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	cachemem "github.com/Gunvolt24/agrostore/internal/cache/memory"
	"github.com/Gunvolt24/agrostore/internal/domain"
	pgrepo "github.com/Gunvolt24/agrostore/internal/repo/postgres"
	"github.com/Gunvolt24/agrostore/internal/testutil"
	rest "github.com/Gunvolt24/agrostore/internal/transport/http"
	"github.com/Gunvolt24/agrostore/internal/usecase"
	"github.com/Gunvolt24/agrostore/pkg/logger"
	"github.com/Gunvolt24/agrostore/pkg/validate"
)

// startServer — Postgres в контейнере + полный конвейер сервиса за httptest.Server.
func startServer(t *testing.T, ctx context.Context) (*testutil.PGContainer, *httptest.Server) {
	t.Helper()

	pg, stop, err := testutil.StartPostgresTC(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stop(context.Background()) })
	require.NoError(t, testutil.ApplyMigrationsGoose(pg.DSN))

	logg, cleanup, err := logger.NewZapLogger(false, "debug")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	repo := pgrepo.NewOrderRepository(pg.Pool)
	updater := usecase.NewStatusUpdater(repo, logg, usecase.UpdaterConfig{AttemptTimeout: 2 * time.Second})
	svc := usecase.NewOrderService(repo, cachemem.NewOrderCache(100, time.Minute), updater, logg, validate.NewCommandValidator())

	ts := httptest.NewServer(rest.NewRouter(rest.NewHandler(svc, logg), rest.RouterConfig{HandlerTimeout: 5 * time.Second}))
	t.Cleanup(ts.Close)
	return pg, ts
}

func putStatus(t *testing.T, url, status string) (*http.Response, map[string]any) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"status": status})
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	return resp, got
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	return resp, got
}

// GET /orders/:id — 200 с позициями; 404 для несуществующего и синтаксически неверного id
func TestHTTP_GetOrder_TC(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	pg, ts := startServer(t, ctx)

	ord := testutil.MakeOrder(testutil.WithItems(2))
	require.NoError(t, testutil.InsertOrder(ctx, pg.Pool, ord))

	resp, got := getJSON(t, ts.URL+"/orders/"+ord.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, got["success"])
	data := got["data"].(map[string]any)
	require.Equal(t, ord.ID, data["id"])
	require.Len(t, data["items"], 2)

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		resp, got = getJSON(t, ts.URL+"/orders/"+id)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, id)
		require.Equal(t, "Order not found", got["error"])
	}
}

// PUT /orders/:id — статус меняется, updated_at растёт, повторный GET видит новое значение
func TestHTTP_UpdateStatus_TC(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	pg, ts := startServer(t, ctx)

	ord := testutil.MakeOrder()
	require.NoError(t, testutil.InsertOrder(ctx, pg.Pool, ord))

	// заполняем кэш до обновления
	resp, _ := getJSON(t, ts.URL+"/orders/"+ord.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, got := putStatus(t, ts.URL+"/orders/"+ord.ID, "shipped")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Order updated successfully", got["message"])
	data := got["data"].(map[string]any)
	require.Equal(t, "primary", data["strategy"])
	require.Equal(t, true, data["updated"])

	updatedAt, err := time.Parse(time.RFC3339Nano, data["updated_at"].(string))
	require.NoError(t, err)
	require.True(t, updatedAt.After(ord.UpdatedAt))

	resp, got = getJSON(t, ts.URL+"/orders/"+ord.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "shipped", got["data"].(map[string]any)["status"])
}

// PUT: отклонённый хранилищем статус — 422, отсутствующий заказ — 404, пустой статус — 400
func TestHTTP_UpdateStatus_Errors_TC(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	pg, ts := startServer(t, ctx)

	ord := testutil.MakeOrder()
	require.NoError(t, testutil.InsertOrder(ctx, pg.Pool, ord))

	resp, got := putStatus(t, ts.URL+"/orders/"+ord.ID, "teleported")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, false, got["success"])

	resp, _ = putStatus(t, ts.URL+"/orders/"+uuid.NewString(), "shipped")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = putStatus(t, ts.URL+"/orders/"+ord.ID, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// статус не изменился
	resp, got = getJSON(t, ts.URL+"/orders/"+ord.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "pending", got["data"].(map[string]any)["status"])
}

// GET /orders — фильтр по статусу и пагинация, новые первыми
func TestHTTP_ListOrders_TC(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	pg, ts := startServer(t, ctx)

	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		o := testutil.MakeOrder(testutil.WithStatus(domain.StatusProcessing), testutil.WithCreatedAt(base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, testutil.InsertOrder(ctx, pg.Pool, o))
		ids = append(ids, o.ID)
	}
	require.NoError(t, testutil.InsertOrder(ctx, pg.Pool, testutil.MakeOrder(testutil.WithStatus(domain.StatusCancelled))))

	resp, err := http.Get(ts.URL + "/orders?status=processing&limit=2&offset=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Success bool           `json:"success"`
		Data    []domain.Order `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Data, 2)
	require.Equal(t, ids[1], got.Data[0].ID)
	require.Equal(t, ids[0], got.Data[1].ID)
}

// /ping, /metrics, 404 на неизвестный маршрут
func TestHTTP_Health_Metrics_And_404_TC(t *testing.T) {
	logg, cleanup, err := logger.NewZapLogger(false, "info")
	require.NoError(t, err)
	defer func() { _ = cleanup() }()

	ts := httptest.NewServer(rest.NewRouter(rest.NewHandler(noOpService{}, logg), rest.RouterConfig{}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "pong", string(readAll(t, resp.Body)))

	respM, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer respM.Body.Close()
	require.Equal(t, http.StatusOK, respM.StatusCode)
	require.NotEmpty(t, readAll(t, respM.Body))

	resp404, got := getJSON(t, ts.URL+"/no/such/route")
	require.Equal(t, http.StatusNotFound, resp404.StatusCode)
	require.Equal(t, "route not found", got["error"])
}

// --- функции помощники ---

// noOpService — заглушка для маршрутов, где бизнес-логика не важна.
type noOpService struct{}

func (noOpService) GetOrder(context.Context, string) (*domain.Order, error) {
	return nil, domain.ErrOrderNotFound
}
func (noOpService) ListOrders(context.Context, domain.OrderFilter) ([]*domain.Order, error) {
	return nil, nil
}
func (noOpService) UpdateStatus(_ context.Context, id string, st domain.Status) (*domain.UpdateResult, error) {
	return &domain.UpdateResult{OrderID: id, Status: st}, domain.ErrOrderNotFound
}

// readAll — просто прочитать тело.
func readAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return b
}
