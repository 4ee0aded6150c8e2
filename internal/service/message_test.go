package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"job_board/internal/domain"
	apperrors "job_board/pkg/errors"
	"job_board/pkg/logger"

	"github.com/google/uuid"
)

type messageFixture struct {
	svc           MessageService
	messages      *fakeMessageRepo
	notifications *fakeNotificationRepo
	pub           *recordingPublisher
	conv          *domain.Conversation
	seeker        *domain.User
	recruiter     *domain.User
}

func newMessageFixture(t *testing.T) *messageFixture {
	t.Helper()

	companyID := uuid.New()
	seeker := &domain.User{ID: uuid.New(), Name: "Ann", Role: domain.RoleSeeker}
	recruiter := &domain.User{ID: uuid.New(), Name: "Rita", Role: domain.RoleCompany, CompanyID: &companyID}

	convs := newFakeConversationRepo()
	conv, _, _ := convs.GetOrCreate(context.Background(), seeker.ID, companyID)

	f := &messageFixture{
		messages:      &fakeMessageRepo{},
		notifications: &fakeNotificationRepo{},
		pub:           &recordingPublisher{},
		conv:          conv,
		seeker:        seeker,
		recruiter:     recruiter,
	}
	companies := &fakeCompanyRepo{companies: map[uuid.UUID]*domain.Company{
		companyID: {ID: companyID, Name: "Acme"},
	}}
	log := logger.NewNop()
	f.svc = NewMessageService(f.messages, convs, companies, NewNotificationService(f.notifications, log), f.pub, log)
	return f
}

func TestSendStoresAndPublishes(t *testing.T) {
	f := newMessageFixture(t)

	msg, err := f.svc.Send(context.Background(), f.seeker, f.conv.ID, f.seeker.ID, "  Hello  ")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if msg.Content != "  Hello  " {
		t.Errorf("Expected content stored as sent, got %q", msg.Content)
	}
	if len(f.messages.messages) != 1 {
		t.Fatalf("Expected 1 stored message, got %d", len(f.messages.messages))
	}
	if len(f.pub.calls) != 1 || f.pub.calls[0].ConversationID != f.conv.ID.String() {
		t.Fatalf("Expected one publish for the conversation, got %+v", f.pub.calls)
	}
	// Соискатель не получает уведомлений о собственных сообщениях
	if len(f.notifications.notifications) != 0 {
		t.Errorf("Seeker message must not create a notification")
	}
}

func TestSendAcceptsLongContent(t *testing.T) {
	f := newMessageFixture(t)
	content := strings.Repeat("a", 6000)

	msg, err := f.svc.Send(context.Background(), f.seeker, f.conv.ID, f.seeker.ID, content)
	if err != nil {
		t.Fatalf("Long message rejected: %v", err)
	}
	if len(msg.Content) != len(content) {
		t.Errorf("Content changed: expected %d chars, got %d", len(content), len(msg.Content))
	}
	if len(f.messages.messages) != 1 {
		t.Fatalf("Expected 1 stored message, got %d", len(f.messages.messages))
	}
	if len(f.pub.calls) != 1 || f.pub.calls[0].Message.Content != content {
		t.Errorf("Expected the full message to be published, got %d publishes", len(f.pub.calls))
	}
}

func TestSendSucceedsWhenRelayIsDown(t *testing.T) {
	f := newMessageFixture(t)
	f.pub.err = errRelayDown

	msg, err := f.svc.Send(context.Background(), f.seeker, f.conv.ID, f.seeker.ID, "Hello")
	if err != nil {
		t.Fatalf("Relay failure must not fail the request: %v", err)
	}

	list, err := f.svc.List(context.Background(), f.seeker, f.conv.ID)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 1 || list[0].ID != msg.ID {
		t.Errorf("Message not persisted: %+v", list)
	}
}

func TestSendFromCompanyNotifiesSeeker(t *testing.T) {
	f := newMessageFixture(t)
	content := strings.Repeat("x", 60)

	if _, err := f.svc.Send(context.Background(), f.recruiter, f.conv.ID, f.recruiter.ID, content); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if len(f.notifications.notifications) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(f.notifications.notifications))
	}
	n := f.notifications.notifications[0]
	if n.UserID != f.seeker.ID {
		t.Errorf("Notification addressed to %s, expected seeker %s", n.UserID, f.seeker.ID)
	}
	want := "New message from Acme: " + strings.Repeat("x", 50) + "..."
	if n.Content != want {
		t.Errorf("Notification content = %q, expected %q", n.Content, want)
	}
	if n.Read {
		t.Error("New notification must be unread")
	}
}

func TestSendNotificationFailureIsSwallowed(t *testing.T) {
	f := newMessageFixture(t)
	f.notifications.err = errors.New("insert failed")

	if _, err := f.svc.Send(context.Background(), f.recruiter, f.conv.ID, f.recruiter.ID, "Hi"); err != nil {
		t.Fatalf("Notification failure must not fail Send: %v", err)
	}
	if len(f.pub.calls) != 1 {
		t.Errorf("Publish must still happen")
	}
}

func TestSendRejections(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()
	otherCompany := uuid.New()
	outsider := &domain.User{ID: uuid.New(), Role: domain.RoleCompany, CompanyID: &otherCompany}

	cases := []struct {
		name    string
		actor   *domain.User
		convID  uuid.UUID
		sender  uuid.UUID
		content string
		want    error
	}{
		{"empty content", f.seeker, f.conv.ID, f.seeker.ID, "   ", apperrors.ErrBadRequest},
		{"missing conversation id", f.seeker, uuid.Nil, f.seeker.ID, "Hi", apperrors.ErrBadRequest},
		{"sender is someone else", f.seeker, f.conv.ID, f.recruiter.ID, "Hi", apperrors.ErrForbidden},
		{"unknown conversation", f.seeker, uuid.New(), f.seeker.ID, "Hi", apperrors.ErrConversationNotFound},
		{"not a participant", outsider, f.conv.ID, outsider.ID, "Hi", apperrors.ErrNotParticipant},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Send(ctx, tc.actor, tc.convID, tc.sender, tc.content)
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}

	if len(f.messages.messages) != 0 || len(f.pub.calls) != 0 {
		t.Error("Rejected sends must not store or publish")
	}
}

func TestSendStorageFailureSkipsPublish(t *testing.T) {
	f := newMessageFixture(t)
	f.messages.err = errors.New("db down")

	if _, err := f.svc.Send(context.Background(), f.seeker, f.conv.ID, f.seeker.ID, "Hi"); err == nil {
		t.Fatal("Expected storage error")
	}
	if len(f.pub.calls) != 0 {
		t.Error("Unsaved message must not be published")
	}
}

func TestListOrdersAscending(t *testing.T) {
	f := newMessageFixture(t)
	base := time.Now()
	for i, content := range []string{"third", "first", "second"} {
		offset := []time.Duration{2, 0, 1}[i]
		f.messages.messages = append(f.messages.messages, &domain.Message{
			ID: uuid.New(), ConversationID: f.conv.ID, SenderID: f.seeker.ID,
			Content: content, CreatedAt: base.Add(offset * time.Second),
		})
	}

	list, err := f.svc.List(context.Background(), f.recruiter, f.conv.ID)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	got := []string{list[0].Content, list[1].Content, list[2].Content}
	if strings.Join(got, ",") != "first,second,third" {
		t.Errorf("Unexpected order %v", got)
	}
}
