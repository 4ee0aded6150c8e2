package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"job_board/internal/domain"
	apperrors "job_board/pkg/errors"

	"github.com/google/uuid"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User, company *domain.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return apperrors.ErrUserAlreadyExists
		}
	}
	if company != nil {
		user.CompanyID = &company.ID
		user.Company = company
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

type fakeCompanyRepo struct {
	companies map[uuid.UUID]*domain.Company
}

func (r *fakeCompanyRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Company, error) {
	c, ok := r.companies[id]
	if !ok {
		return nil, apperrors.ErrCompanyNotFound
	}
	return c, nil
}

type fakeConversationRepo struct {
	mu    sync.Mutex
	convs map[uuid.UUID]*domain.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{convs: make(map[uuid.UUID]*domain.Conversation)}
}

func (r *fakeConversationRepo) GetOrCreate(_ context.Context, userID, companyID uuid.UUID) (*domain.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.convs {
		if c.UserID == userID && c.CompanyID == companyID {
			cp := *c
			return &cp, false, nil
		}
	}
	c := &domain.Conversation{ID: uuid.New(), UserID: userID, CompanyID: companyID, CreatedAt: time.Now()}
	r.convs[c.ID] = c
	cp := *c
	return &cp, true, nil
}

func (r *fakeConversationRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeConversationRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Conversation
	for _, c := range r.convs {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeConversationRepo) ListByCompany(_ context.Context, companyID uuid.UUID) ([]*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Conversation
	for _, c := range r.convs {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeApplicationRepo struct {
	apps []*domain.Application
}

func (r *fakeApplicationRepo) ListByCompany(context.Context, uuid.UUID) ([]*domain.Application, error) {
	return r.apps, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*domain.Message
	err      error
}

func (r *fakeMessageRepo) Create(_ context.Context, m *domain.Message) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return nil
}

func (r *fakeMessageRepo) ListByConversation(_ context.Context, conversationID uuid.UUID) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []*domain.Notification
	err           error
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool) ([]*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Notification
	for _, n := range r.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return apperrors.ErrNotFound
}

type fakeRateLimitRepo struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (r *fakeRateLimitRepo) Hit(_ context.Context, scope, key string, _ time.Duration) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int64)
	}
	r.counts[scope+":"+key]++
	return r.counts[scope+":"+key], nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	calls []*domain.MessageEvent
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, conversationID string, m *domain.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, &domain.MessageEvent{ConversationID: conversationID, Message: m})
	return p.err
}

var errRelayDown = errors.New("dial tcp 127.0.0.1:3002: connect: connection refused")

type fakeAuditRepo struct {
	mu     sync.Mutex
	events []*domain.AuditLog
	err    error
}

func (r *fakeAuditRepo) CreateLog(_ context.Context, l *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, l)
	return nil
}

func (r *fakeAuditRepo) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}
