package httpx

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Page — окно выборки списка.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage — limit/offset из query.
// Нечисловое значение заменяется значением по умолчанию, limit приводится к [1, maxLimit], offset — к >= 0.
func ParsePage(c *gin.Context, defaultLimit, maxLimit int) Page {
	p := Page{Limit: defaultLimit}
	if v, ok := queryInt(c, "limit"); ok {
		p.Limit = min(max(v, 1), maxLimit)
	}
	if v, ok := queryInt(c, "offset"); ok {
		p.Offset = max(v, 0)
	}
	return p
}

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	return v, err == nil
}
