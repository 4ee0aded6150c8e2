package realtime

import (
	"errors"
	"sync"
	"time"

	"job_board/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 128
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("connection buffer exceeded")
)

// Connection оборачивает websocket и сериализует запись через буферизованный канал
type Connection struct {
	id  string
	ws  *websocket.Conn
	hub *Hub
	log logger.Logger

	send      chan []byte
	closed    chan struct{}
	once      sync.Once
	closeCode int
	closeText string
}

func NewConnection(ws *websocket.Conn, hub *Hub, log logger.Logger) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:     id,
		ws:     ws,
		hub:    hub,
		log:    log.With("connection_id", id),
		send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
	}
}

func (c *Connection) ID() string {
	return c.id
}

// Send ставит кадр в очередь. Если буфер полон, соединение закрывается.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.closed:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return ErrSendBufferFull
	}
}

// Close можно вызывать многократно и из любой горутины.
// Кадр закрытия отправляет writeLoop.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		c.closeCode = code
		c.closeText = reason
		close(c.closed)
	})
}

// Serve регистрирует соединение в хабе и блокируется до его закрытия
func (c *Connection) Serve() {
	if err := c.hub.Register(c); err != nil {
		c.log.Warn("Hub is not accepting connections", "error", err)
		c.ws.Close()
		return
	}

	go c.writeLoop()
	c.readLoop()
}

func (c *Connection) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.Close(websocket.CloseNormalClosure, "")
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Warn("Unexpected websocket close", "error", err)
			}
			return
		}
		c.handleFrame(payload)
	}
}

func (c *Connection) handleFrame(payload []byte) {
	frame, err := DecodeFrame(payload)
	if err != nil {
		c.log.Warn("Ignoring malformed frame", "error", err)
		return
	}

	switch frame.Event {
	case EventJoinConversation, EventLeaveConversation:
		conversationID, err := ConversationIDFromData(frame.Data)
		if err != nil || conversationID == "" {
			c.log.Warn("Ignoring frame without conversation id", "event", frame.Event)
			return
		}
		if frame.Event == EventJoinConversation {
			c.hub.Join(c, conversationID)
		} else {
			c.hub.Leave(c, conversationID)
		}

	case EventSendMessage:
		// Второстепенный путь: пересылка остальным участникам комнаты без сохранения
		conversationID, err := ConversationIDFromData(frame.Data)
		if err != nil || conversationID == "" {
			c.log.Warn("Ignoring send-message without conversation id")
			return
		}
		out, err := EncodeFrame(EventNewMessage, frame.Data)
		if err != nil {
			c.log.Error("Failed to encode frame", "error", err)
			return
		}
		_ = c.hub.Broadcast(conversationID, out, c)

	default:
		c.log.Debug("Ignoring unknown event", "event", frame.Event)
	}
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(c.closeCode, c.closeText),
				time.Now().Add(writeWait))
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.log.Debug("Write failed", "error", err)
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
