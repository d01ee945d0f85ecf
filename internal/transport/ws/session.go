package ws

import (
	"log/slog"
	"sync"

	"github.com/chat-memo/note-service/internal/domain"
	"github.com/chat-memo/note-service/internal/room"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// session — одно соединение и его непрозрачная идентичность участника.
// Идентичность живёт ровно столько, сколько соединение; "моё ли это
// сообщение" клиент решает сравнением sender_id со своим id.
type session struct {
	id   string
	conn *websocket.Conn

	send      chan Envelope
	closed    chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	joined map[int64]struct{} // комнаты, где эта сессия участвует
}

func newSession(conn *websocket.Conn, queue int) *session {
	return &session{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan Envelope, queue),
		closed: make(chan struct{}),
		joined: make(map[int64]struct{}),
	}
}

func (c *session) ID() string { return c.id }

// Deliver транслирует событие комнаты в конвертик протокола и ставит его
// в исходящую очередь, не блокируясь.
func (c *session) Deliver(ev room.Event) error {
	var env Envelope
	switch ev.Kind {
	case room.EventJoined:
		env = Envelope{Type: TypeNoteJoined, Payload: NoteJoinedPayload{
			NoteID:      ev.NoteID,
			Messages:    mapMessages(ev.Messages),
			ViewerCount: ev.Count,
		}}
	case room.EventMessage:
		env = Envelope{Type: TypeNewMessage, Payload: NewMessagePayload{Message: mapMessage(ev.Message)}}
	case room.EventViewerCount:
		env = Envelope{Type: TypeViewerCount, Payload: ViewerCountPayload{NoteID: ev.NoteID, Count: ev.Count}}
	case room.EventNoteDeleted:
		c.forgetRoom(ev.NoteID)
		env = Envelope{Type: TypeNoteDeleted, Payload: NoteDeletedPayload{NoteID: ev.NoteID}}
	default:
		return nil
	}
	return c.enqueue(env)
}

// Kick — принудительное отключение по инициативе комнаты (переполнение
// очереди). Закрытие сокета доводит readLoop до штатного disconnect.
func (c *session) Kick(reason string) {
	slog.Warn("ws participant kicked", "participant", c.id, "reason", reason)
	c.close()
}

func (c *session) enqueue(env Envelope) error {
	select {
	case <-c.closed:
		return domain.ErrSlowConsumer
	case c.send <- env:
		return nil
	default:
		return domain.ErrSlowConsumer
	}
}

func (c *session) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}

func (c *session) trackRoom(noteID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined[noteID] = struct{}{}
}

func (c *session) forgetRoom(noteID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.joined, noteID)
}

func (c *session) joinedRooms() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, 0, len(c.joined))
	for id := range c.joined {
		out = append(out, id)
	}
	return out
}
