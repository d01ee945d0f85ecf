package service

import (
	"context"
	"strings"

	"github.com/chat-memo/note-service/internal/domain"
	"github.com/chat-memo/note-service/internal/postgres"
)

type TagService struct {
	tagRepo *postgres.TagRepository
}

func NewTagService(tagRepo *postgres.TagRepository) *TagService {
	return &TagService{tagRepo: tagRepo}
}

func (s *TagService) List(ctx context.Context) ([]domain.Tag, error) {
	return s.tagRepo.List(ctx)
}

func (s *TagService) Create(ctx context.Context, name, color string) (*domain.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrEmptyTagName
	}
	if color == "" {
		color = domain.DefaultTagColor
	}
	return s.tagRepo.Create(ctx, name, color)
}

// Delete возвращает имя удалённого тега: его несёт глобальный tag_deleted.
func (s *TagService) Delete(ctx context.Context, id int64) (string, error) {
	return s.tagRepo.Delete(ctx, id)
}
