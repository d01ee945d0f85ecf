package ws

import (
	"time"

	"github.com/chat-memo/note-service/internal/domain"
)

// Входящие типы событий — закрытое множество, диспетчеризуется одним
// switch в readLoop; неизвестный тип отвечает unicast error.
const (
	TypeJoinNote    = "join_note"
	TypeLeaveNote   = "leave_note"
	TypeSendMessage = "send_note_message"
	TypeCreateNote  = "create_note"
	TypeCreateTag   = "create_tag"
	TypeGetAllTags  = "get_all_tags"
	TypeDeleteNote  = "delete_note"
	TypeDeleteTag   = "delete_tag"
)

// Исходящие типы событий
const (
	TypeNoteJoined  = "note_joined"  // снапшот истории, только вошедшему
	TypeNewMessage  = "new_note_message"
	TypeViewerCount = "viewer_count_changed"
	TypeNoteDeleted = "note_deleted" // терминальное для комнаты
	TypeNoteCreated = "note_created"
	TypeTagCreated  = "tag_created" // глобальная рассылка
	TypeTagDeleted  = "tag_deleted" // глобальная рассылка
	TypeAllTags     = "all_tags"
	TypeError       = "error" // только unicast, никогда не рассылается
)

type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// -------- входящие payload --------

type JoinNotePayload struct {
	NoteID     int64  `json:"note_id"`
	SenderName string `json:"sender_name"`
}

type LeaveNotePayload struct {
	NoteID int64 `json:"note_id"`
}

type SendMessagePayload struct {
	NoteID     int64  `json:"note_id"`
	SenderName string `json:"sender_name,omitempty"`
	Content    string `json:"content"`
}

type CreateNotePayload struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	IsPublic *bool    `json:"is_public"` // nil — публичная
}

type CreateTagPayload struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type DeleteNotePayload struct {
	NoteID int64 `json:"note_id"`
}

type DeleteTagPayload struct {
	TagID int64 `json:"tag_id"`
}

// -------- исходящие payload --------

type MessageItem struct {
	ID         int64     `json:"id,omitempty"`
	NoteID     int64     `json:"note_id"`
	SenderID   string    `json:"sender_id,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	Kind       string    `json:"kind"`
	Timestamp  time.Time `json:"timestamp"`
}

type NoteJoinedPayload struct {
	NoteID      int64         `json:"note_id"`
	Messages    []MessageItem `json:"messages"`
	ViewerCount int           `json:"viewer_count"`
}

type NewMessagePayload struct {
	Message MessageItem `json:"message"`
}

type ViewerCountPayload struct {
	NoteID int64 `json:"note_id"`
	Count  int   `json:"count"`
}

type NoteDeletedPayload struct {
	NoteID int64 `json:"note_id"`
}

type TagItem struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	NoteCount int64  `json:"note_count"`
}

type NoteItem struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	ShareKey     string    `json:"share_key,omitempty"`
	IsPublic     bool      `json:"is_public"`
	ViewCount    int64     `json:"view_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int64     `json:"message_count"`
	Tags         []TagItem `json:"tags"`
}

type NoteCreatedPayload struct {
	Note NoteItem `json:"note"`
}

type TagCreatedPayload struct {
	Tag TagItem `json:"tag"`
}

type TagDeletedPayload struct {
	TagID   int64  `json:"tag_id"`
	TagName string `json:"tag_name"`
}

type AllTagsPayload struct {
	Tags []TagItem `json:"tags"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// -------- мапперы domain -> payload --------

func mapMessage(m *domain.Message) MessageItem {
	return MessageItem{
		ID:         m.ID,
		NoteID:     m.NoteID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Kind:       string(m.Kind),
		Timestamp:  m.CreatedAt,
	}
}

func mapMessages(msgs []domain.Message) []MessageItem {
	out := make([]MessageItem, 0, len(msgs))
	for i := range msgs {
		out = append(out, mapMessage(&msgs[i]))
	}
	return out
}

func mapTag(t *domain.Tag) TagItem {
	return TagItem{
		ID:        t.ID,
		Name:      t.Name,
		Color:     t.Color,
		NoteCount: t.NoteCount,
	}
}

func mapNote(n *domain.Note) NoteItem {
	item := NoteItem{
		ID:           n.ID,
		Title:        n.Title,
		Content:      n.Content,
		IsPublic:     n.IsPublic,
		ViewCount:    n.ViewCount,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
		MessageCount: n.MessageCount,
		Tags:         make([]TagItem, 0, len(n.Tags)),
	}
	if n.ShareKey != nil {
		item.ShareKey = *n.ShareKey
	}
	for i := range n.Tags {
		item.Tags = append(item.Tags, mapTag(&n.Tags[i]))
	}
	return item
}
