package httpx

import "github.com/gin-gonic/gin"

// Response — единый конверт ответов API.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK — успешный ответ с данными.
func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

// OKMessage — успешный ответ с данными и сообщением для клиента.
func OKMessage(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Response{Success: true, Data: data, Message: message})
}

// Fail — ответ с ошибкой; дальнейшие обработчики цепочки не вызываются.
func Fail(c *gin.Context, status int, errMsg string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: errMsg})
}
