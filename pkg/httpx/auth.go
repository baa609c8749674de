package httpx

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// BearerToken — доступ только с заголовком "Authorization: Bearer <token>".
// Пустой token отключает проверку (локальная разработка).
func BearerToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			Fail(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		got := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			Fail(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		c.Next()
	}
}
