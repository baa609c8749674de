package httpx

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/agrostore/internal/ports"
)

// RequestLogger — журнал HTTP-запросов; служебные /metrics и /ping не пишутся.
// request_id, trace_id и span_id добавляет сам логгер из контекста запроса.
func RequestLogger(log ports.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		switch path {
		case "/metrics", "/ping":
			return
		case "":
			path = c.Request.URL.Path
		}

		status := c.Writer.Status()
		args := []any{c.Request.Method, path, status, c.ClientIP(), time.Since(start), c.Writer.Size()}
		const format = "request method=%s path=%s status=%d ip=%s duration=%s size=%d"
		if status >= 500 {
			log.Errorf(c.Request.Context(), format, args...)
			return
		}
		log.Infof(c.Request.Context(), format, args...)
	}
}
