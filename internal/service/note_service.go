package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/chat-memo/note-service/internal/domain"
	"github.com/chat-memo/note-service/internal/postgres"
	"github.com/chat-memo/note-service/internal/sharekey"
)

const listLimit = 50

type NoteService struct {
	noteRepo *postgres.NoteRepository
	msgRepo  *postgres.MessageRepository
	tagRepo  *postgres.TagRepository
}

func NewNoteService(noteRepo *postgres.NoteRepository, msgRepo *postgres.MessageRepository, tagRepo *postgres.TagRepository) *NoteService {
	return &NoteService{
		noteRepo: noteRepo,
		msgRepo:  msgRepo,
		tagRepo:  tagRepo,
	}
}

// Create создаёт заметку с уникальным ключом шаринга и тегами.
func (s *NoteService) Create(ctx context.Context, title, content string, tags []string, isPublic bool) (*domain.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.ErrEmptyTitle
	}

	key, err := sharekey.GenerateUnique(ctx, s.noteRepo.ShareKeyExists)
	if err != nil {
		return nil, fmt.Errorf("generate share key: %w", err)
	}

	note := &domain.Note{
		Title:    title,
		Content:  strings.TrimSpace(content),
		ShareKey: &key,
		IsPublic: isPublic,
	}
	if err := s.noteRepo.Create(ctx, note, tags); err != nil {
		return nil, fmt.Errorf("noteRepo.Create: %w", err)
	}
	return note, nil
}

// Get возвращает заметку и засчитывает просмотр.
func (s *NoteService) Get(ctx context.Context, id int64) (*domain.Note, error) {
	note, err := s.noteRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// best-effort: счётчик не должен ронять просмотр
	if err := s.noteRepo.IncViewCount(ctx, id); err == nil {
		note.ViewCount++
	}
	return note, nil
}

// GetByShareKey — доступ к заметке по ключу шаринга (в т.ч. непубличной).
func (s *NoteService) GetByShareKey(ctx context.Context, key string) (*domain.Note, error) {
	key = sharekey.Format(key)
	if !sharekey.Validate(key) {
		return nil, domain.ErrNoteNotFound
	}
	note, err := s.noteRepo.GetByShareKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.noteRepo.IncViewCount(ctx, note.ID); err == nil {
		note.ViewCount++
	}
	return note, nil
}

func (s *NoteService) List(ctx context.Context) ([]domain.Note, error) {
	return s.noteRepo.List(ctx, listLimit)
}

// Search — публичные заметки по подстроке и AND-набору тегов.
func (s *NoteService) Search(ctx context.Context, q string, tags []string) ([]domain.Note, error) {
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			clean = append(clean, t)
		}
	}
	return s.noteRepo.Search(ctx, strings.TrimSpace(q), clean, listLimit)
}

func (s *NoteService) Delete(ctx context.Context, id int64) error {
	return s.noteRepo.Delete(ctx, id)
}

type Stats struct {
	TotalNotes    int64
	TotalMessages int64
	ActiveTags    int64
}

func (s *NoteService) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.TotalNotes, err = s.noteRepo.CountAll(ctx); err != nil {
		return st, err
	}
	if st.TotalMessages, err = s.msgRepo.CountAll(ctx); err != nil {
		return st, err
	}
	if st.ActiveTags, err = s.tagRepo.CountAll(ctx); err != nil {
		return st, err
	}
	return st, nil
}
