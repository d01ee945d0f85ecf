package postgres

import (
	"context"

	"github.com/chat-memo/note-service/internal/domain"
)

// NoteStore — адаптер хранилища для room.Registry: существование заметки,
// история и запись сообщений.
type NoteStore struct {
	notes    *NoteRepository
	messages *MessageRepository
}

func NewNoteStore(notes *NoteRepository, messages *MessageRepository) *NoteStore {
	return &NoteStore{notes: notes, messages: messages}
}

func (s *NoteStore) NoteExists(ctx context.Context, noteID int64) (bool, error) {
	return s.notes.Exists(ctx, noteID)
}

func (s *NoteStore) LoadHistory(ctx context.Context, noteID int64) ([]domain.Message, error) {
	return s.messages.History(ctx, noteID)
}

func (s *NoteStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	return s.messages.Append(ctx, msg)
}
