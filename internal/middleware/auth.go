package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Ключи контекста с данными аутентифицированного пользователя
const (
	ContextUserID   = "userID"
	ContextUserName = "userName"
)

// PrincipalMiddleware извлекает идентификатор пользователя из bearer-токена.
// Аутентификация живет во внешнем сервисе: сюда запросы приходят уже
// проверенными, токен несет идентификатор принципала, имя для отображения
// опционально передается в X-User-Name.
func PrincipalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")

		token := ""
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
		// Для websocket-апгрейда браузер не шлет заголовки,
		// принимаем токен и через query-параметр
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			c.Abort()
			return
		}

		userName := c.GetHeader("X-User-Name")
		if userName == "" {
			userName = c.Query("userName")
		}
		if userName == "" {
			userName = "anonymous"
		}

		c.Set(ContextUserID, token)
		c.Set(ContextUserName, userName)
		c.Next()
	}
}

// UserID достает идентификатор принципала из контекста запроса
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func UserName(c *gin.Context) string {
	return c.GetString(ContextUserName)
}
