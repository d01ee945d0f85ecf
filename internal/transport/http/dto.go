package http

import (
	"time"

	"github.com/chat-memo/note-service/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
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

type NotesResponse struct {
	Notes []NoteItem `json:"notes"`
}

type TagsResponse struct {
	Tags []TagItem `json:"tags"`
}

type ViewersResponse struct {
	NoteID int64 `json:"note_id"`
	Count  int   `json:"count"`
}

type StatsResponse struct {
	TotalNotes    int64 `json:"total_notes"`
	TotalMessages int64 `json:"total_messages"`
	ActiveTags    int64 `json:"active_tags"`
	OpenRooms     int   `json:"open_rooms"`
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

func mapNotes(notes []domain.Note) []NoteItem {
	out := make([]NoteItem, 0, len(notes))
	for i := range notes {
		out = append(out, mapNote(&notes[i]))
	}
	return out
}
