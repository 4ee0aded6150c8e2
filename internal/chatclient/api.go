package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"job_board/internal/domain"
)

// API: часть HTTP API, которая нужна сессии
type API interface {
	ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error)
	SendMessage(ctx context.Context, conversationID, senderID, content string) (*domain.Message, error)
}

// APIClient: типизированный клиент /api/v1 с bearer-токеном
type APIClient struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *APIClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Login получает токен и запоминает его для следующих запросов
func (c *APIClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

func (c *APIClient) ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	var conversations []*domain.Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations?userId="+url.QueryEscape(userID), nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (c *APIClient) CreateConversation(ctx context.Context, userID, companyID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := c.do(ctx, http.MethodPost, "/conversations", map[string]string{
		"userId":    userID,
		"companyId": companyID,
	}, &conv)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *APIClient) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	var messages []*domain.Message
	if err := c.do(ctx, http.MethodGet, "/messages?conversationId="+url.QueryEscape(conversationID), nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *APIClient) SendMessage(ctx context.Context, conversationID, senderID, content string) (*domain.Message, error) {
	var message domain.Message
	err := c.do(ctx, http.MethodPost, "/messages", map[string]string{
		"conversationId": conversationID,
		"senderId":       senderID,
		"content":        content,
	}, &message)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// StatusError: ответ API с кодом вне 2xx
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned status %d: %s", e.Code, e.Message)
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr)
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
