package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"job_board/internal/publisher"
	"job_board/internal/realtime"
	"job_board/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const maxEmitBodySize = 1 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Relay открыт для любых источников, как и CORS
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type RelayHandler struct {
	hub         *realtime.Hub
	ingestToken string
	log         logger.Logger
}

func NewRelayHandler(hub *realtime.Hub, ingestToken string, log logger.Logger) *RelayHandler {
	return &RelayHandler{
		hub:         hub,
		ingestToken: ingestToken,
		log:         log,
	}
}

// Emit принимает {conversationId, message} от API и рассылает new-message в комнату.
// Тело пересылается клиентам без изменений.
func (h *RelayHandler) Emit(c *gin.Context) {
	if h.ingestToken != "" && c.GetHeader(publisher.IngestTokenHeader) != h.ingestToken {
		h.log.Warn("Rejected emit with bad ingest token", "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEmitBodySize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	var event struct {
		ConversationID string `json:"conversationId"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		h.log.Warn("Error processing emit-message", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if event.ConversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
		return
	}

	frame, err := realtime.EncodeFrame(realtime.EventNewMessage, json.RawMessage(body))
	if err != nil {
		h.log.Error("Failed to encode frame", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := h.hub.Broadcast(event.ConversationID, frame, nil); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Relay is shutting down"})
		return
	}

	h.log.Debug("Message emitted", "conversation_id", event.ConversationID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleSocket переводит соединение на websocket и обслуживает его до закрытия
func (h *RelayHandler) HandleSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	conn := realtime.NewConnection(ws, h.hub, h.log)
	h.log.Debug("Client connected", "connection_id", conn.ID(), "client_ip", c.ClientIP())
	conn.Serve()
	h.log.Debug("Client disconnected", "connection_id", conn.ID())
}

func (h *RelayHandler) Health(c *gin.Context) {
	stats, err := h.hub.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "stopping"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"service":     "job-board-relay",
		"rooms":       stats.Rooms,
		"connections": stats.Connections,
	})
}
