package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/chat-memo/note-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NoteRepository struct {
	db *pgxpool.Pool
}

func NewNoteRepository(db *pgxpool.Pool) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create вставляет заметку вместе с тегами (несуществующие теги создаются)
// в одной транзакции.
func (r *NoteRepository) Create(ctx context.Context, note *domain.Note, tagNames []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO notes (title, content, share_key, is_public)
		VALUES ($1, $2, $3, $4)
		RETURNING id, view_count, created_at, updated_at
	`, note.Title, note.Content, note.ShareKey, note.IsPublic).
		Scan(&note.ID, &note.ViewCount, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return err
	}

	note.Tags = note.Tags[:0]
	for _, name := range tagNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var t domain.Tag
		// DO UPDATE вместо DO NOTHING, чтобы RETURNING отработал и для
		// уже существующего тега
		err := tx.QueryRow(ctx, `
			INSERT INTO tags (name)
			VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, name, color, created_at
		`, name).Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO note_tags (note_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, note.ID, t.ID); err != nil {
			return err
		}
		note.Tags = append(note.Tags, t)
	}

	return tx.Commit(ctx)
}

func (r *NoteRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM notes WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *NoteRepository) ShareKeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM notes WHERE share_key=$1)`, key).Scan(&exists)
	return exists, err
}

func (r *NoteRepository) Get(ctx context.Context, id int64) (*domain.Note, error) {
	return r.getOne(ctx,
		`SELECT id, title, content, share_key, is_public, view_count, created_at, updated_at
		 FROM notes WHERE id=$1`, id)
}

func (r *NoteRepository) GetByShareKey(ctx context.Context, key string) (*domain.Note, error) {
	return r.getOne(ctx,
		`SELECT id, title, content, share_key, is_public, view_count, created_at, updated_at
		 FROM notes WHERE share_key=$1`, key)
}

func (r *NoteRepository) getOne(ctx context.Context, query string, arg any) (*domain.Note, error) {
	var n domain.Note
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&n.ID, &n.Title, &n.Content, &n.ShareKey, &n.IsPublic,
		&n.ViewCount, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoteNotFound
		}
		return nil, err
	}
	if err := r.attachMeta(ctx, []*domain.Note{&n}); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NoteRepository) IncViewCount(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE notes SET view_count = view_count + 1 WHERE id=$1`, id)
	return err
}

// List — публичные заметки, свежие сверху.
func (r *NoteRepository) List(ctx context.Context, limit int) ([]domain.Note, error) {
	return r.selectNotes(ctx, `
		SELECT id, title, content, share_key, is_public, view_count, created_at, updated_at
		FROM notes
		WHERE is_public
		ORDER BY updated_at DESC, id DESC
		LIMIT $1`, limit)
}

// Search — подстрочный поиск по заголовку/тексту плюс AND-фильтр по тегам:
// заметка должна нести каждый из перечисленных тегов.
func (r *NoteRepository) Search(ctx context.Context, q string, tags []string, limit int) ([]domain.Note, error) {
	return r.selectNotes(ctx, `
		SELECT id, title, content, share_key, is_public, view_count, created_at, updated_at
		FROM notes
		WHERE is_public
		  AND ($1 = '' OR title ILIKE '%'||$1||'%' OR content ILIKE '%'||$1||'%')
		  AND (cardinality($2::text[]) = 0 OR id IN (
		        SELECT nt.note_id
		        FROM note_tags nt
		        JOIN tags t ON t.id = nt.tag_id
		        WHERE t.name = ANY($2)
		        GROUP BY nt.note_id
		        HAVING COUNT(DISTINCT t.name) = cardinality($2::text[])
		  ))
		ORDER BY updated_at DESC, id DESC
		LIMIT $3`, q, tags, limit)
}

func (r *NoteRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM notes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

func (r *NoteRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notes`).Scan(&n)
	return n, err
}

func (r *NoteRepository) selectNotes(ctx context.Context, query string, args ...any) ([]domain.Note, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(
			&n.ID, &n.Title, &n.Content, &n.ShareKey, &n.IsPublic,
			&n.ViewCount, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*domain.Note, len(notes))
	for i := range notes {
		refs[i] = &notes[i]
	}
	if err := r.attachMeta(ctx, refs); err != nil {
		return nil, err
	}
	return notes, nil
}

// attachMeta дозаполняет Tags и MessageCount двумя групповыми запросами.
func (r *NoteRepository) attachMeta(ctx context.Context, notes []*domain.Note) error {
	if len(notes) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(notes))
	byID := make(map[int64]*domain.Note, len(notes))
	for _, n := range notes {
		ids = append(ids, n.ID)
		byID[n.ID] = n
	}

	rows, err := r.db.Query(ctx, `
		SELECT nt.note_id, t.id, t.name, t.color, t.created_at
		FROM note_tags nt
		JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id = ANY($1)
		ORDER BY t.name`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var noteID int64
		var t domain.Tag
		if err := rows.Scan(&noteID, &t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		if n, ok := byID[noteID]; ok {
			n.Tags = append(n.Tags, t)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.Query(ctx, `
		SELECT note_id, COUNT(*)
		FROM note_messages
		WHERE note_id = ANY($1)
		GROUP BY note_id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var noteID, count int64
		if err := rows.Scan(&noteID, &count); err != nil {
			return err
		}
		if n, ok := byID[noteID]; ok {
			n.MessageCount = count
		}
	}
	return rows.Err()
}
