package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-todo-api/internal/handlers"
	"go-todo-api/internal/services"
)

// RequestIDHeader はリクエストIDを受け渡すヘッダーです。
const RequestIDHeader = "X-Request-ID"

const (
	msgMissingToken = "Token de autenticação ausente."
	msgInvalidToken = "Token inválido ou expirado."
)

// AuthMiddleware はJWTトークンを検証し、ユーザー情報をコンテキストに設定するミドルウェアです。
// id クレームの無いトークンも通しますが、その場合ユーザーIDは設定しません。
func AuthMiddleware(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, msgMissingToken)
			return
		}

		// スキーム名は大文字小文字を区別しない
		const prefix = "Bearer "
		if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
			abortUnauthorized(c, msgInvalidToken)
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(header[len(prefix):]))
		if err != nil {
			log.Debug("Rejected bearer token", "err", err, "request_id", c.GetString(handlers.ContextKeyRequestID))
			abortUnauthorized(c, msgInvalidToken)
			return
		}

		if claims.UserID != 0 {
			c.Set(handlers.ContextKeyUserID, claims.UserID)
		}
		c.Set(handlers.ContextKeyUserEmail, claims.Email)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, handlers.MessageResponse{Message: message})
}

// RequestID は X-Request-ID を引き継ぐか新しく発行し、レスポンスにも付けます。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(handlers.ContextKeyRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger はリクエストごとに1行のログを出力します。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"request_id", c.GetString(handlers.ContextKeyRequestID),
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// BodyLimit はリクエスト本文を limit バイトまでに制限します。
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// Recovery はパニックを500応答に変換します。
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error("Recovered from panic", "panic", recovered, "request_id", c.GetString(handlers.ContextKeyRequestID))
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			handlers.MessageResponse{Message: handlers.MsgInternalServerError})
	})
}
