package postgres

import (
	"context"
	"errors"

	"github.com/chat-memo/note-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TagRepository struct {
	db *pgxpool.Pool
}

func NewTagRepository(db *pgxpool.Pool) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) List(ctx context.Context) ([]domain.Tag, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.name, t.color, t.created_at, COUNT(nt.note_id)
		FROM tags t
		LEFT JOIN note_tags nt ON nt.tag_id = t.id
		GROUP BY t.id
		ORDER BY t.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt, &t.NoteCount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create возвращает ErrTagExists для занятого имени.
func (r *TagRepository) Create(ctx context.Context, name, color string) (*domain.Tag, error) {
	var t domain.Tag
	err := r.db.QueryRow(ctx, `
		INSERT INTO tags (name, color)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, color, created_at
	`, name, color).Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTagExists
		}
		return nil, err
	}
	return &t, nil
}

// Delete возвращает имя удалённого тега для глобального оповещения.
func (r *TagRepository) Delete(ctx context.Context, id int64) (string, error) {
	var name string
	err := r.db.QueryRow(ctx,
		`DELETE FROM tags WHERE id=$1 RETURNING name`, id).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrTagNotFound
		}
		return "", err
	}
	return name, nil
}

func (r *TagRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tags`).Scan(&n)
	return n, err
}
