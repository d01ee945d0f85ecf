package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/chat-memo/note-service/internal/domain"
	"github.com/chat-memo/note-service/internal/room"

	"github.com/gorilla/websocket"
)

type RoomHub interface {
	Join(ctx context.Context, noteID int64, participantID, name string, sub room.Subscriber) (int, error)
	Leave(noteID int64, participantID string)
	Send(ctx context.Context, noteID int64, participantID, content string) (*domain.Message, error)
	CloseNote(noteID int64)
}

type NoteSvc interface {
	Create(ctx context.Context, title, content string, tags []string, isPublic bool) (*domain.Note, error)
	Delete(ctx context.Context, id int64) error
}

type TagSvc interface {
	List(ctx context.Context) ([]domain.Tag, error)
	Create(ctx context.Context, name, color string) (*domain.Tag, error)
	Delete(ctx context.Context, id int64) (string, error)
}

type Server struct {
	upgrader websocket.Upgrader
	rooms    RoomHub
	noteSvc  NoteSvc
	tagSvc   TagSvc

	queueSize int
	pingEvery time.Duration

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewServer(rooms RoomHub, notes NoteSvc, tags TagSvc, queueSize int) *Server {
	if queueSize <= 0 {
		queueSize = 32
	}
	return &Server{
		rooms:   rooms,
		noteSvc: notes,
		tagSvc:  tags,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		queueSize: queueSize,
		pingEvery: 15 * time.Second,
		sessions:  make(map[string]*session),
	}
}

// WS endpoint: GET /ws
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newSession(conn, s.queueSize)
	s.addSession(c)
	slog.Info("ws connected", "participant", c.id)

	go s.writeLoop(c)
	s.readLoop(r.Context(), c)

	s.removeSession(c)
	// покидаем все комнаты этого соединения; одна сессия может состоять
	// в нескольких комнатах сразу
	for _, noteID := range c.joinedRooms() {
		s.rooms.Leave(noteID, c.id)
	}
	c.close()
	slog.Info("ws disconnected", "participant", c.id)
}

// BroadcastTagDeleted — глобальная рассылка, не привязанная к комнате:
// используется и admin-HTTP-обработчиком.
func (s *Server) BroadcastTagDeleted(tagID int64, tagName string) {
	s.broadcastAll(Envelope{Type: TypeTagDeleted, Payload: TagDeletedPayload{TagID: tagID, TagName: tagName}})
}

func (s *Server) readLoop(ctx context.Context, c *session) {
	defer c.close()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.sendError(c, "invalid json")
			continue
		}
		s.dispatch(ctx, c, env)
	}
}

// dispatch — единственная точка ветвления по типам входящих событий.
func (s *Server) dispatch(ctx context.Context, c *session, env Envelope) {
	switch env.Type {
	case TypeJoinNote:
		var p JoinNotePayload
		if decode(env.Payload, &p) == nil {
			s.handleJoin(ctx, c, p)
		}
	case TypeLeaveNote:
		var p LeaveNotePayload
		if decode(env.Payload, &p) == nil {
			s.rooms.Leave(p.NoteID, c.id)
			c.forgetRoom(p.NoteID)
		}
	case TypeSendMessage:
		var p SendMessagePayload
		if decode(env.Payload, &p) == nil {
			s.handleSend(ctx, c, p)
		}
	case TypeCreateNote:
		var p CreateNotePayload
		if decode(env.Payload, &p) == nil {
			s.handleCreateNote(ctx, c, p)
		}
	case TypeCreateTag:
		var p CreateTagPayload
		if decode(env.Payload, &p) == nil {
			s.handleCreateTag(ctx, c, p)
		}
	case TypeGetAllTags:
		s.handleGetAllTags(ctx, c)
	case TypeDeleteNote:
		var p DeleteNotePayload
		if decode(env.Payload, &p) == nil {
			s.handleDeleteNote(ctx, c, p.NoteID)
		}
	case TypeDeleteTag:
		var p DeleteTagPayload
		if decode(env.Payload, &p) == nil {
			s.handleDeleteTag(ctx, c, p.TagID)
		}
	default:
		s.sendError(c, "unknown event type: "+env.Type)
	}
}

// handleJoin: снапшот note_joined кладёт в очередь сама комната, под
// своим замком — сообщение, отправленное после join, не обгонит его.
func (s *Server) handleJoin(ctx context.Context, c *session, p JoinNotePayload) {
	if _, err := s.rooms.Join(ctx, p.NoteID, c.id, p.SenderName, c); err != nil {
		s.sendError(c, err.Error())
		return
	}
	c.trackRoom(p.NoteID)
}

func (s *Server) handleSend(ctx context.Context, c *session, p SendMessagePayload) {
	// имя отправителя берётся из членства комнаты, payload-поле
	// sender_name легаси и игнорируется
	if _, err := s.rooms.Send(ctx, p.NoteID, c.id, p.Content); err != nil {
		s.sendError(c, err.Error())
	}
}

func (s *Server) handleCreateNote(ctx context.Context, c *session, p CreateNotePayload) {
	isPublic := true
	if p.IsPublic != nil {
		isPublic = *p.IsPublic
	}
	note, err := s.noteSvc.Create(ctx, p.Title, p.Content, p.Tags, isPublic)
	if err != nil {
		s.sendError(c, err.Error())
		return
	}
	_ = c.enqueue(Envelope{Type: TypeNoteCreated, Payload: NoteCreatedPayload{Note: mapNote(note)}})
}

func (s *Server) handleCreateTag(ctx context.Context, c *session, p CreateTagPayload) {
	tag, err := s.tagSvc.Create(ctx, p.Name, p.Color)
	if err != nil {
		s.sendError(c, err.Error())
		return
	}
	s.broadcastAll(Envelope{Type: TypeTagCreated, Payload: TagCreatedPayload{Tag: mapTag(tag)}})
}

func (s *Server) handleGetAllTags(ctx context.Context, c *session) {
	tags, err := s.tagSvc.List(ctx)
	if err != nil {
		s.sendError(c, err.Error())
		return
	}
	items := make([]TagItem, 0, len(tags))
	for i := range tags {
		items = append(items, mapTag(&tags[i]))
	}
	_ = c.enqueue(Envelope{Type: TypeAllTags, Payload: AllTagsPayload{Tags: items}})
}

// handleDeleteNote: вызывающий авторизован снаружи. Сначала хранилище,
// потом комната: гонящийся send либо успевает записаться до удаления,
// либо падает.
func (s *Server) handleDeleteNote(ctx context.Context, c *session, noteID int64) {
	if err := s.noteSvc.Delete(ctx, noteID); err != nil {
		s.sendError(c, err.Error())
		return
	}
	s.rooms.CloseNote(noteID)
	slog.Info("note deleted", "note_id", noteID, "by", c.id)
}

func (s *Server) handleDeleteTag(ctx context.Context, c *session, tagID int64) {
	name, err := s.tagSvc.Delete(ctx, tagID)
	if err != nil {
		s.sendError(c, err.Error())
		return
	}
	s.BroadcastTagDeleted(tagID, name)
	slog.Info("tag deleted", "tag_id", tagID, "tag_name", name, "by", c.id)
}

func (s *Server) writeLoop(c *session) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteJSON(env); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-c.closed:
			return
		}
	}
}

// sendError — ошибки всегда unicast инициатору, в комнаты не попадают.
func (s *Server) sendError(c *session, msg string) {
	_ = c.enqueue(Envelope{Type: TypeError, Payload: ErrorPayload{Message: msg}})
}

func (s *Server) broadcastAll(env Envelope) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.sessions {
		if err := c.enqueue(env); err != nil {
			c.Kick(domain.ErrSlowConsumer.Error())
		}
	}
}

func (s *Server) addSession(c *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[c.id] = c
}

func (s *Server) removeSession(c *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, c.id)
}

// --- helpers ---

func decode(payload interface{}, dst interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}
