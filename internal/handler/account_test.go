package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"job_board/internal/config"
	"job_board/internal/domain"
	"job_board/internal/middleware"
	apperrors "job_board/pkg/errors"
	"job_board/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubUserService struct {
	user *domain.User
}

func (s *stubUserService) GetMe(_ context.Context, userID uuid.UUID) (*domain.User, error) {
	if s.user == nil || s.user.ID != userID {
		return nil, apperrors.ErrUserNotFound
	}
	return s.user, nil
}

type stubNotificationService struct {
	unreadOnly []bool
	known      map[uuid.UUID]bool
}

func (s *stubNotificationService) NotifyNewMessage(context.Context, uuid.UUID, string, string) error {
	return nil
}

func (s *stubNotificationService) List(_ context.Context, userID uuid.UUID, unreadOnly bool) ([]*domain.Notification, error) {
	s.unreadOnly = append(s.unreadOnly, unreadOnly)
	return []*domain.Notification{{ID: uuid.New(), UserID: userID, Content: "New message from Acme: Hi"}}, nil
}

func (s *stubNotificationService) MarkRead(_ context.Context, id, _ uuid.UUID) error {
	if !s.known[id] {
		return apperrors.ErrNotFound
	}
	return nil
}

func newAccountRouter(user *domain.User, users *stubUserService, notifications *stubNotificationService) *gin.Engine {
	log := logger.NewNop()
	router := gin.New()
	router.Use(middleware.ErrorHandler(log), withUser(user))

	uh := NewUserHandler(users, log)
	nh := NewNotificationHandler(notifications, log)
	router.GET("/users/me", uh.GetMe)
	router.GET("/notifications", nh.List)
	router.PUT("/notifications/:id/read", nh.MarkRead)
	return router
}

func TestGetMeHidesPasswordHash(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "ann@site.io", Role: domain.RoleSeeker, PasswordHash: "$2a$10$secret"}
	router := newAccountRouter(user, &stubUserService{user: user}, &stubNotificationService{})

	w := doJSON(router, http.MethodGet, "/users/me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["email"] != "ann@site.io" {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
	for key := range body {
		if key == "password_hash" || key == "passwordHash" || key == "PasswordHash" {
			t.Errorf("Password hash serialized: %s", w.Body.String())
		}
	}
}

func TestNotificationHandlers(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Role: domain.RoleSeeker}
	known := uuid.New()
	notifications := &stubNotificationService{known: map[uuid.UUID]bool{known: true}}
	router := newAccountRouter(user, &stubUserService{}, notifications)

	if w := doJSON(router, http.MethodGet, "/notifications?unread=true", nil); w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w := doJSON(router, http.MethodGet, "/notifications", nil); w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if len(notifications.unreadOnly) != 2 || !notifications.unreadOnly[0] || notifications.unreadOnly[1] {
		t.Errorf("Unread filter not passed through: %v", notifications.unreadOnly)
	}

	cases := []struct {
		name string
		id   string
		want int
	}{
		{"owned", known.String(), http.StatusOK},
		{"unknown", uuid.NewString(), http.StatusNotFound},
		{"malformed", "n1", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := doJSON(router, http.MethodPut, "/notifications/"+tc.id+"/read", nil); w.Code != tc.want {
				t.Errorf("Expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestHealthAndServerInfo(t *testing.T) {
	cfg := &config.Config{Relay: config.RelayConfig{URL: "http://relay:3002", PublicURL: "https://chat.example.com"}}
	h := NewHealthHandler(cfg)

	router := gin.New()
	router.GET("/health", h.Check)
	router.GET("/server-info", h.ServerInfo)

	w := doJSON(router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var health map[string]string
	json.Unmarshal(w.Body.Bytes(), &health)
	if health["status"] != "ok" || health["service"] != "job-board-api" {
		t.Errorf("Unexpected health body %s", w.Body.String())
	}

	w = doJSON(router, http.MethodGet, "/server-info", nil)
	var info map[string]string
	json.Unmarshal(w.Body.Bytes(), &info)
	if info["relay_url"] != "https://chat.example.com" {
		t.Errorf("Expected public relay URL, got %q", info["relay_url"])
	}
}
