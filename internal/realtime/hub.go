package realtime

import (
	"context"
	"errors"

	"job_board/pkg/logger"
)

// ErrHubStopped возвращается при обращении к остановленному хабу
var ErrHubStopped = errors.New("hub stopped")

// Subscriber: участник комнат хаба. Send не должен блокироваться.
type Subscriber interface {
	ID() string
	Send(payload []byte) error
	Close(code int, reason string)
}

// Stats: текущее состояние хаба для /health
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

type membership struct {
	sub            Subscriber
	conversationID string
}

type broadcast struct {
	conversationID string
	payload        []byte
	exclude        Subscriber
}

// Hub хранит членство в комнатах. Все карты принадлежат горутине Run,
// остальные горутины общаются с ней только через каналы.
type Hub struct {
	rooms       map[string]map[Subscriber]struct{}
	memberships map[Subscriber]map[string]struct{}

	register   chan Subscriber
	unregister chan Subscriber
	join       chan membership
	leave      chan membership
	broadcast  chan broadcast
	stats      chan chan Stats

	done chan struct{}
	log  logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		rooms:       make(map[string]map[Subscriber]struct{}),
		memberships: make(map[Subscriber]map[string]struct{}),
		register:    make(chan Subscriber),
		unregister:  make(chan Subscriber),
		join:        make(chan membership),
		leave:       make(chan membership),
		broadcast:   make(chan broadcast),
		stats:       make(chan chan Stats),
		done:        make(chan struct{}),
		log:         log,
	}
}

// Run обрабатывает события до отмены ctx, затем закрывает все соединения
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case sub := <-h.register:
			if _, ok := h.memberships[sub]; !ok {
				h.memberships[sub] = make(map[string]struct{})
			}
			h.log.Debug("Connection registered", "connection_id", sub.ID(), "connections", len(h.memberships))

		case sub := <-h.unregister:
			h.remove(sub)

		case m := <-h.join:
			rooms, ok := h.memberships[m.sub]
			if !ok {
				continue
			}
			room := h.rooms[m.conversationID]
			if room == nil {
				room = make(map[Subscriber]struct{})
				h.rooms[m.conversationID] = room
			}
			room[m.sub] = struct{}{}
			rooms[m.conversationID] = struct{}{}
			h.log.Debug("Joined conversation", "connection_id", m.sub.ID(), "conversation_id", m.conversationID)

		case m := <-h.leave:
			h.leaveRoom(m.sub, m.conversationID)

		case b := <-h.broadcast:
			h.dispatch(b)

		case reply := <-h.stats:
			reply <- Stats{Rooms: len(h.rooms), Connections: len(h.memberships)}
		}
	}
}

func (h *Hub) dispatch(b broadcast) {
	room := h.rooms[b.conversationID]
	if len(room) == 0 {
		h.log.Debug("Broadcast to empty room", "conversation_id", b.conversationID)
		return
	}

	var dropped []Subscriber
	delivered := 0
	for sub := range room {
		if b.exclude != nil && sub == b.exclude {
			continue
		}
		if err := sub.Send(b.payload); err != nil {
			dropped = append(dropped, sub)
			continue
		}
		delivered++
	}

	// Медленный клиент отключается, чтобы не тормозить остальных
	for _, sub := range dropped {
		h.log.Warn("Dropping slow connection", "connection_id", sub.ID(), "conversation_id", b.conversationID)
		h.remove(sub)
	}

	h.log.Debug("Broadcast dispatched", "conversation_id", b.conversationID, "delivered", delivered)
}

func (h *Hub) remove(sub Subscriber) {
	rooms, ok := h.memberships[sub]
	if !ok {
		return
	}
	for conversationID := range rooms {
		h.leaveRoom(sub, conversationID)
	}
	delete(h.memberships, sub)
	h.log.Debug("Connection unregistered", "connection_id", sub.ID(), "connections", len(h.memberships))
}

func (h *Hub) leaveRoom(sub Subscriber, conversationID string) {
	if room := h.rooms[conversationID]; room != nil {
		delete(room, sub)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
	if rooms := h.memberships[sub]; rooms != nil {
		delete(rooms, conversationID)
	}
}

func (h *Hub) shutdown() {
	for sub := range h.memberships {
		sub.Close(1001, "relay shutdown")
	}
	h.rooms = make(map[string]map[Subscriber]struct{})
	h.memberships = make(map[Subscriber]map[string]struct{})
}

func (h *Hub) Register(sub Subscriber) error {
	select {
	case h.register <- sub:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(sub Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Join идемпотентен; повторный вход не меняет членство
func (h *Hub) Join(sub Subscriber, conversationID string) {
	select {
	case h.join <- membership{sub: sub, conversationID: conversationID}:
	case <-h.done:
	}
}

// Leave для комнаты, в которой соединения нет, ничего не делает
func (h *Hub) Leave(sub Subscriber, conversationID string) {
	select {
	case h.leave <- membership{sub: sub, conversationID: conversationID}:
	case <-h.done:
	}
}

// Broadcast передает кадр циклу хаба и не ждет доставки клиентам.
// exclude может быть nil.
func (h *Hub) Broadcast(conversationID string, payload []byte, exclude Subscriber) error {
	select {
	case h.broadcast <- broadcast{conversationID: conversationID, payload: payload, exclude: exclude}:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
	case <-h.done:
		return Stats{}, ErrHubStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Done закрывается после выхода из Run
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
