package service

import (
	"context"
	"errors"
	"testing"

	"github.com/chat-memo/note-service/internal/domain"
)

// валидация отрабатывает до обращения к репозиториям, поэтому nil-репо
// здесь безопасны: дойти до них тест не должен

func TestNoteCreateEmptyTitle(t *testing.T) {
	s := NewNoteService(nil, nil, nil)
	for _, title := range []string{"", "   ", "\t\n"} {
		if _, err := s.Create(context.Background(), title, "body", nil, true); !errors.Is(err, domain.ErrEmptyTitle) {
			t.Fatalf("title %q: %v", title, err)
		}
	}
}

func TestNoteGetByShareKeyRejectsGarbage(t *testing.T) {
	s := NewNoteService(nil, nil, nil)
	for _, key := range []string{"", "abc", "with space!!", "0000000000000000"} {
		if _, err := s.GetByShareKey(context.Background(), key); !errors.Is(err, domain.ErrNoteNotFound) {
			t.Fatalf("key %q: %v", key, err)
		}
	}
}

func TestTagCreateEmptyName(t *testing.T) {
	s := NewTagService(nil)
	if _, err := s.Create(context.Background(), "   ", ""); !errors.Is(err, domain.ErrEmptyTagName) {
		t.Fatalf("expected ErrEmptyTagName, got %v", err)
	}
}
