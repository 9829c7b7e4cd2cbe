package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type healthChecker interface {
	Health(ctx context.Context) map[string]string
}

// HealthHandler はデータベースの状態を返すハンドラーです。
type HealthHandler struct {
	db healthChecker
}

// NewHealthHandler は新しいHealthHandlerを作成します。
func NewHealthHandler(db healthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health はDBが応答すれば200、しなければ503を返します。
func (h *HealthHandler) Health(c *gin.Context) {
	stats := h.db.Health(c.Request.Context())
	if stats["status"] != "up" {
		c.JSON(http.StatusServiceUnavailable, stats)
		return
	}
	c.JSON(http.StatusOK, stats)
}
