package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"job_board/internal/publisher"
	"job_board/internal/realtime"
	"job_board/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRelayServer(t *testing.T, ingestToken string) (*httptest.Server, *realtime.Hub) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := realtime.NewHub(logger.NewNop())
	go hub.Run(ctx)

	h := NewRelayHandler(hub, ingestToken, logger.NewNop())
	router := gin.New()
	router.GET("/health", h.Health)
	router.POST("/emit-message", h.Emit)
	router.GET("/ws", h.HandleSocket)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
		srv.Close()
	})
	return srv, hub
}

func dialRelay(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial relay: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendFrame(t *testing.T, ws *websocket.Conn, event string, data interface{}) {
	t.Helper()
	payload, err := realtime.EncodeFrame(event, data)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

// waitForRooms опрашивает хаб, пока join не будет обработан
func waitForRooms(t *testing.T, hub *realtime.Hub, rooms int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats, err := hub.Stats(context.Background())
		if err == nil && stats.Rooms == rooms {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Hub did not reach %d rooms", rooms)
}

func emit(t *testing.T, srv *httptest.Server, body string, header http.Header) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/emit-message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Emit request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestJoinedClientReceivesNewMessage(t *testing.T) {
	srv, hub := newRelayServer(t, "")
	joined := dialRelay(t, srv)
	other := dialRelay(t, srv)

	sendFrame(t, joined, realtime.EventJoinConversation, "k1")
	sendFrame(t, other, realtime.EventJoinConversation, "k2")
	waitForRooms(t, hub, 2)

	body := `{"conversationId":"k1","message":{"id":"m1","content":"Hello"}}`
	if resp := emit(t, srv, body, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	joined.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := joined.ReadMessage()
	if err != nil {
		t.Fatalf("Joined client did not receive event: %v", err)
	}
	frame, err := realtime.DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if frame.Event != realtime.EventNewMessage {
		t.Errorf("Expected new-message, got %s", frame.Event)
	}
	var data struct {
		ConversationID string `json:"conversationId"`
		Message        struct {
			ID string `json:"id"`
		} `json:"message"`
	}
	if err := json.Unmarshal(frame.Data, &data); err != nil || data.ConversationID != "k1" || data.Message.ID != "m1" {
		t.Errorf("Unexpected payload %s", frame.Data)
	}

	// Клиент другой комнаты ничего не получает
	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("Client in another room received the event")
	}
}

func TestEmitRejectsMalformedBody(t *testing.T) {
	srv, hub := newRelayServer(t, "")
	ws := dialRelay(t, srv)
	sendFrame(t, ws, realtime.EventJoinConversation, "k1")
	waitForRooms(t, hub, 1)

	resp := emit(t, srv, "not json", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != "Invalid JSON" {
		t.Errorf("Unexpected error body %v", body)
	}

	if resp := emit(t, srv, `{"message":{}}`, nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 without conversationId, got %d", resp.StatusCode)
	}

	// Членство не пострадало: следующая рассылка доходит
	if resp := emit(t, srv, `{"conversationId":"k1","message":{"id":"m2"}}`, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err != nil {
		t.Errorf("Membership lost after malformed emit: %v", err)
	}
}

func TestEmitRequiresIngestTokenWhenConfigured(t *testing.T) {
	srv, _ := newRelayServer(t, "s3cret")
	body := `{"conversationId":"k1","message":{}}`

	if resp := emit(t, srv, body, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}
	header := http.Header{publisher.IngestTokenHeader: []string{"s3cret"}}
	if resp := emit(t, srv, body, header); resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestSendMessageIsRelayedToOthers(t *testing.T) {
	srv, hub := newRelayServer(t, "")
	sender := dialRelay(t, srv)
	receiver := dialRelay(t, srv)
	sendFrame(t, receiver, realtime.EventJoinConversation, "k1")
	// Повторный join не создает дубликатов доставки
	sendFrame(t, receiver, realtime.EventJoinConversation, "k1")
	waitForRooms(t, hub, 1)

	// join и send-message одного соединения обрабатываются по порядку
	sendFrame(t, sender, realtime.EventJoinConversation, "k1")
	sendFrame(t, sender, realtime.EventSendMessage, map[string]string{"conversationId": "k1", "content": "typing"})

	receiver.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := receiver.ReadMessage()
	if err != nil {
		t.Fatalf("Receiver got nothing: %v", err)
	}
	if frame, _ := realtime.DecodeFrame(payload); frame == nil || frame.Event != realtime.EventNewMessage {
		t.Errorf("Unexpected frame %s", payload)
	}

	receiver.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := receiver.ReadMessage(); err == nil {
		t.Error("Double join produced a duplicate delivery")
	}
	sender.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := sender.ReadMessage(); err == nil {
		t.Error("Sender must not receive its own send-message")
	}
}

func TestRelayHealthCountsRooms(t *testing.T) {
	srv, hub := newRelayServer(t, "")
	ws := dialRelay(t, srv)
	sendFrame(t, ws, realtime.EventJoinConversation, "k1")
	waitForRooms(t, hub, 1)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Status      string `json:"status"`
		Rooms       int    `json:"rooms"`
		Connections int    `json:"connections"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Status != "ok" || body.Rooms != 1 || body.Connections != 1 {
		t.Errorf("Unexpected health %+v", body)
	}

	ws.Close()
	waitForRooms(t, hub, 0)
}
