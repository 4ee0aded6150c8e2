package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"job_board/internal/domain"
	"job_board/internal/realtime"
	"job_board/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrNotConnected       = errors.New("relay not connected")
	ErrNoOpenConversation = errors.New("no conversation is open")
)

type Options struct {
	// RelayURL вида ws(s)://host:port/ws
	RelayURL string
	SenderID string

	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	Dialer        *websocket.Dialer
	OnStateChange func(State)
	// OnMessage вызывается для каждого нового сообщения открытой переписки
	OnMessage func(*domain.Message)
	Log       logger.Logger
}

// Session держит одно соединение с relay независимо от открытой переписки
// и сводит сообщения из API и из relay в один список без дубликатов.
type Session struct {
	api  API
	opts Options
	log  logger.Logger

	mu       sync.Mutex
	state    State
	ws       *websocket.Conn
	openID   string
	messages []*domain.Message
	seen     map[uuid.UUID]struct{}

	writeMu sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewSession(api API, opts Options) *Session {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 5 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}

	return &Session{
		api:  api,
		opts: opts,
		log:  log,
		seen: make(map[uuid.UUID]struct{}),
	}
}

// Start запускает подключение в фоне и сразу возвращается
func (s *Session) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.run(ctx, done)
}

// Stop закрывает соединение и ждет завершения фоновой горутины
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done, ws := s.cancel, s.done, s.ws
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if ws != nil {
		ws.Close()
	}
	<-done
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OpenConversation возвращает id открытой переписки или пустую строку
func (s *Session) OpenConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openID
}

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.setState(StateConnecting)
	for {
		ws, err := s.connect(ctx)
		if err != nil {
			s.log.Warn("Relay unreachable, live updates stopped", "error", err)
			s.setState(StateDisconnected)
			return
		}

		// Рукопожатие могло завершиться уже после Stop
		if ctx.Err() != nil {
			ws.Close()
			s.setState(StateDisconnected)
			return
		}

		stop := s.closeOnDone(ctx, ws)
		s.attach(ws)
		s.readLoop(ws)
		close(stop)
		s.detach(ws)

		if ctx.Err() != nil {
			s.setState(StateDisconnected)
			return
		}
		s.log.Info("Relay connection lost, reconnecting")
		s.setState(StateReconnecting)
	}
}

// closeOnDone закрывает ws при отмене ctx, чтобы readLoop не висел после Stop.
// Закрытие возвращенного канала снимает наблюдение.
func (s *Session) closeOnDone(ctx context.Context, ws *websocket.Conn) chan struct{} {
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-stop:
		}
	}()
	return stop
}

func (s *Session) connect(ctx context.Context) (*websocket.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.InitialDelay
	b.MaxInterval = s.opts.MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.opts.MaxAttempts)), ctx)

	var ws *websocket.Conn
	operation := func() error {
		conn, _, err := s.opts.Dialer.DialContext(ctx, s.opts.RelayURL, nil)
		if err != nil {
			return err
		}
		ws = conn
		return nil
	}
	notify := func(err error, delay time.Duration) {
		s.log.Debug("Relay dial failed", "error", err, "retry_in", delay)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *Session) attach(ws *websocket.Conn) {
	s.mu.Lock()
	s.ws = ws
	openID := s.openID
	s.mu.Unlock()

	s.setState(StateConnected)

	// После переподключения relay не помнит комнаты: входим заново
	if openID != "" {
		if err := s.emit(realtime.EventJoinConversation, openID); err != nil {
			s.log.Warn("Failed to rejoin conversation", "conversation_id", openID, "error", err)
		}
	}
}

func (s *Session) detach(ws *websocket.Conn) {
	s.mu.Lock()
	if s.ws == ws {
		s.ws = nil
	}
	s.mu.Unlock()
	ws.Close()
}

func (s *Session) readLoop(ws *websocket.Conn) {
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}
		s.handleFrame(payload)
	}
}

func (s *Session) handleFrame(payload []byte) {
	frame, err := realtime.DecodeFrame(payload)
	if err != nil {
		s.log.Debug("Ignoring malformed frame", "error", err)
		return
	}
	if frame.Event != realtime.EventNewMessage {
		return
	}

	var event domain.MessageEvent
	if err := json.Unmarshal(frame.Data, &event); err != nil || event.Message == nil {
		s.log.Debug("Ignoring malformed new-message", "error", err)
		return
	}
	s.merge(event.ConversationID, event.Message)
}

// merge добавляет сообщение открытой переписки, если его еще нет в списке
func (s *Session) merge(conversationID string, message *domain.Message) bool {
	s.mu.Lock()
	if conversationID != s.openID {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.seen[message.ID]; ok {
		s.mu.Unlock()
		return false
	}
	s.seen[message.ID] = struct{}{}
	s.messages = append(s.messages, message)
	s.mu.Unlock()

	if s.opts.OnMessage != nil {
		s.opts.OnMessage(message)
	}
	return true
}

// Open переключает просмотр на переписку: выход из предыдущей комнаты,
// вход в новую и полная загрузка истории
func (s *Session) Open(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	previous := s.openID
	s.openID = conversationID
	s.messages = nil
	s.seen = make(map[uuid.UUID]struct{})
	s.mu.Unlock()

	if previous != "" && previous != conversationID {
		if err := s.emit(realtime.EventLeaveConversation, previous); err != nil && !errors.Is(err, ErrNotConnected) {
			s.log.Warn("Failed to leave conversation", "conversation_id", previous, "error", err)
		}
	}

	// Вход до загрузки: сообщения, пришедшие во время загрузки, не теряются
	if err := s.emit(realtime.EventJoinConversation, conversationID); err != nil && !errors.Is(err, ErrNotConnected) {
		s.log.Warn("Failed to join conversation", "conversation_id", conversationID, "error", err)
	}

	return s.Refresh(ctx)
}

// Close закрывает просмотр текущей переписки
func (s *Session) Close() {
	s.mu.Lock()
	previous := s.openID
	s.openID = ""
	s.messages = nil
	s.seen = make(map[uuid.UUID]struct{})
	s.mu.Unlock()

	if previous != "" {
		if err := s.emit(realtime.EventLeaveConversation, previous); err != nil && !errors.Is(err, ErrNotConnected) {
			s.log.Warn("Failed to leave conversation", "conversation_id", previous, "error", err)
		}
	}
}

// Refresh заново загружает историю; работает и без relay.
// Ответ API заменяет список, а сообщения из relay, которых в ответе еще нет, остаются в конце.
func (s *Session) Refresh(ctx context.Context) error {
	conversationID := s.OpenConversation()
	if conversationID == "" {
		return ErrNoOpenConversation
	}

	fetched, err := s.api.ListMessages(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openID != conversationID {
		return nil
	}

	view := make([]*domain.Message, 0, len(fetched)+len(s.messages))
	seen := make(map[uuid.UUID]struct{}, len(fetched)+len(s.messages))
	for _, m := range fetched {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		view = append(view, m)
	}
	// Сообщения из relay, которых еще нет в ответе API
	for _, m := range s.messages {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		view = append(view, m)
	}

	s.messages = view
	s.seen = seen
	return nil
}

// Send сохраняет сообщение через API и сразу показывает его локально.
// Эхо из relay с тем же id будет отброшено.
func (s *Session) Send(ctx context.Context, content string) (*domain.Message, error) {
	conversationID := s.OpenConversation()
	if conversationID == "" {
		return nil, ErrNoOpenConversation
	}

	message, err := s.api.SendMessage(ctx, conversationID, s.opts.SenderID, content)
	if err != nil {
		return nil, err
	}
	s.merge(conversationID, message)
	return message, nil
}

// Messages возвращает копию текущего списка
func (s *Session) Messages() []*domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) emit(event, conversationID string) error {
	s.mu.Lock()
	ws := s.ws
	s.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}

	payload, err := realtime.EncodeFrame(event, conversationID)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return ws.WriteMessage(websocket.TextMessage, payload)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()

	s.log.Debug("Relay session state changed", "state", state.String())
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(state)
	}
}
