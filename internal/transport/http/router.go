package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Gunvolt24/agrostore/pkg/httpx"
)

// RouterConfig — параметры HTTP-конвейера.
type RouterConfig struct {
	AdminToken     string        // токен для изменяющих и служебных маршрутов; "" — без проверки
	HandlerTimeout time.Duration // предел обработки одного запроса
	Tracing        bool          // включить otelgin
	ServiceName    string        // имя сервиса для спанов otelgin
}

// NewRouter — gin.Engine со всеми маршрутами и middleware.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery())
	r.Use(httpx.RequestIDMiddleware())
	if cfg.Tracing {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpx.RequestLogger(h.log))

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	orders := r.Group("/orders", httpx.Timeout(cfg.HandlerTimeout))
	orders.GET("/:id", h.getOrderByID)

	admin := orders.Group("", httpx.BearerToken(cfg.AdminToken))
	admin.GET("", h.listOrders)
	admin.PUT("/:id", h.updateOrderStatus)

	r.NoRoute(func(c *gin.Context) { httpx.Fail(c, http.StatusNotFound, "route not found") })
	r.NoMethod(func(c *gin.Context) { httpx.Fail(c, http.StatusMethodNotAllowed, "method not allowed") })

	return r
}
