package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/agrostore/internal/domain"
	"github.com/Gunvolt24/agrostore/internal/ports"
	"github.com/Gunvolt24/agrostore/pkg/ctxmeta"
	"github.com/Gunvolt24/agrostore/pkg/httpx"
	"github.com/Gunvolt24/agrostore/pkg/validate"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	msgNotFound = "Order not found"
	msgInternal = "internal server error"
)

// Handler — HTTP-обработчики заказов.
type Handler struct {
	service ports.OrderService
	log     ports.Logger
}

func NewHandler(service ports.OrderService, log ports.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// updateStatusRequest — тело PUT /orders/:id.
type updateStatusRequest struct {
	Status *string `json:"status"`
}

// updateStatusResponse — data успешного PUT /orders/:id.
type updateStatusResponse struct {
	ID        string                `json:"id"`
	Status    domain.Status         `json:"status"`
	Updated   bool                  `json:"updated"`
	Strategy  domain.UpdateStrategy `json:"strategy"`
	UpdatedAt *time.Time            `json:"updated_at,omitempty"`
	Order     *domain.Order         `json:"order,omitempty"`
}

func (h *Handler) getOrderByID(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))

	order, err := h.service.GetOrder(ctx, id)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		httpx.Fail(c, http.StatusNotFound, msgNotFound)
		return
	case err != nil:
		h.log.Errorf(ctx, "GetOrder failed id=%s err=%v", id, err)
		httpx.Fail(c, statusFromContext(ctx, http.StatusInternalServerError), msgInternal)
		return
	}
	httpx.OK(c, http.StatusOK, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	ctx := c.Request.Context()
	page := httpx.ParsePage(c, defaultListLimit, maxListLimit)
	filter := domain.OrderFilter{
		Status: domain.Status(strings.TrimSpace(c.Query("status"))),
		Limit:  page.Limit,
		Offset: page.Offset,
	}

	orders, err := h.service.ListOrders(ctx, filter)
	if err != nil {
		h.log.Errorf(ctx, "ListOrders failed status=%q err=%v", filter.Status, err)
		httpx.Fail(c, statusFromContext(ctx, http.StatusInternalServerError), msgInternal)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	httpx.OK(c, http.StatusOK, orders)
}

// updateOrderStatus — смена статуса; ответ отражает действительный итог цепочки попыток.
func (h *Handler) updateOrderStatus(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	ctx := ctxmeta.WithSource(ctxmeta.WithOrderID(c.Request.Context(), id), ctxmeta.SourceHTTP)

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == nil || strings.TrimSpace(*req.Status) == "" {
		httpx.Fail(c, http.StatusBadRequest, "status is required")
		return
	}
	status := domain.Status(strings.TrimSpace(*req.Status))

	res, err := h.service.UpdateStatus(ctx, id, status)
	switch {
	case err == nil:
	case errors.Is(err, validate.ErrInvalidCommand):
		httpx.Fail(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, domain.ErrOrderNotFound):
		httpx.Fail(c, http.StatusNotFound, msgNotFound)
		return
	case errors.Is(err, domain.ErrStatusRejected):
		httpx.Fail(c, http.StatusUnprocessableEntity, "status rejected: "+string(status))
		return
	case errors.Is(err, domain.ErrUpdateFailed):
		h.log.Errorf(ctx, "UpdateStatus failed err=%v", err)
		httpx.Fail(c, http.StatusInternalServerError, err.Error())
		return
	default:
		h.log.Errorf(ctx, "UpdateStatus failed err=%v", err)
		httpx.Fail(c, statusFromContext(ctx, http.StatusInternalServerError), msgInternal)
		return
	}

	data := updateStatusResponse{
		ID:       res.OrderID,
		Status:   res.Status,
		Updated:  true,
		Strategy: res.Strategy,
		Order:    res.Order,
	}
	if res.Order != nil {
		updatedAt := res.Order.UpdatedAt
		data.UpdatedAt = &updatedAt
	}
	httpx.OKMessage(c, http.StatusOK, data, "Order updated successfully")
}

// statusFromContext — 504, если истёк предел обработки запроса.
func statusFromContext(ctx context.Context, fallback int) int {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return fallback
}
