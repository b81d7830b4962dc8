package handler

import (
	"log"
	"strings"
	"time"

	"pointshop/internal/service"
	"pointshop/pkg/response"

	"github.com/gin-gonic/gin"
)

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"success":   false,
					"message":   "服务器内部错误",
					"timestamp": time.Now().Format(time.RFC3339),
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

const (
	ctxUserIDKey = "auth_user_id"
	ctxEmailKey  = "auth_email"
)

// AuthMiddleware 鉴权中间件，校验 Bearer 令牌并把用户身份放进上下文
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := c.GetHeader("Authorization")
		parts := strings.SplitN(authorization, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Fail(c, service.ErrTokenRequired)
			c.Abort()
			return
		}

		userID, email, err := authService.ParseToken(parts[1])
		if err != nil {
			response.Fail(c, err)
			c.Abort()
			return
		}

		c.Set(ctxUserIDKey, userID)
		c.Set(ctxEmailKey, email)
		c.Next()
	}
}

// currentUserID 取出鉴权中间件写入的用户 ID
func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserIDKey)
}
