package handler

import (
	"net/http"

	"job_board/internal/config"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	relayURL string
}

func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		relayURL: cfg.Relay.ClientRelayURL(),
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "job-board-api",
	})
}

// ServerInfo возвращает клиентам адрес relay для live-обновлений
func (h *HealthHandler) ServerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"relay_url": h.relayURL,
		"api_base":  "/api/v1",
	})
}
