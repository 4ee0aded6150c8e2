package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"job_board/internal/domain"
	"job_board/pkg/logger"
)

// IngestTokenHeader: заголовок с общим секретом для POST /emit-message
const IngestTokenHeader = "X-Relay-Token"

// Publisher доставляет сохраненное сообщение на relay-сервер.
// Доставка best-effort: ошибка означает лишь то, что подключенные клиенты не получат live-обновление.
type Publisher interface {
	Publish(ctx context.Context, conversationID string, message *domain.Message) error
}

// HTTPPublisher делает один POST на <relay>/emit-message, без повторов
type HTTPPublisher struct {
	endpoint    string
	ingestToken string
	httpClient  *http.Client
}

// NewHTTPPublisher создает клиента relay; timeout ограничивает каждую попытку целиком
func NewHTTPPublisher(relayURL, ingestToken string, timeout time.Duration) *HTTPPublisher {
	return &HTTPPublisher{
		endpoint:    strings.TrimRight(relayURL, "/") + "/emit-message",
		ingestToken: ingestToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *HTTPPublisher) Publish(ctx context.Context, conversationID string, message *domain.Message) error {
	body, err := json.Marshal(domain.MessageEvent{
		ConversationID: conversationID,
		Message:        message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.ingestToken != "" {
		req.Header.Set(IngestTokenHeader, p.ingestToken)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("relay returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	// Дочитываем тело, чтобы соединение вернулось в пул
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// AsyncPublisher запускает публикацию в отдельной горутине и сразу возвращает управление.
// Ошибки логируются и не возвращаются вызывающему.
type AsyncPublisher struct {
	next    Publisher
	timeout time.Duration
	log     logger.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func NewAsyncPublisher(next Publisher, timeout time.Duration, log logger.Logger) *AsyncPublisher {
	return &AsyncPublisher{
		next:    next,
		timeout: timeout,
		log:     log,
	}
}

// Publish не блокируется. Контекст запроса не используется:
// он отменяется, как только хендлер вернул ответ.
func (p *AsyncPublisher) Publish(_ context.Context, conversationID string, message *domain.Message) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.log.Warn("Publisher is closed, dropping relay notification", "conversation_id", conversationID)
		return nil
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		start := time.Now()
		if err := p.next.Publish(ctx, conversationID, message); err != nil {
			p.log.Warn("Relay publish failed, live update dropped",
				"conversation_id", conversationID,
				"message_id", message.ID,
				"elapsed", time.Since(start),
				"error", err,
			)
			return
		}
		p.log.Debug("Relay publish succeeded", "conversation_id", conversationID, "message_id", message.ID)
	}()

	return nil
}

// Close ждет завершения начатых публикаций или отмены ctx
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NopPublisher используется, когда relay не настроен
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, *domain.Message) error { return nil }
