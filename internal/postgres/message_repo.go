package postgres

import (
	"context"

	"github.com/chat-memo/note-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append пишет сообщение и в той же транзакции освежает updated_at
// заметки, чтобы активные заметки всплывали в списках.
func (r *MessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO note_messages (note_id, sender_id, sender_name, content, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, msg.NoteID, msg.SenderID, msg.SenderName, msg.Content, msg.Kind, msg.CreatedAt).
		Scan(&msg.ID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE notes SET updated_at = now() WHERE id=$1`, msg.NoteID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// History — весь лог заметки в порядке добавления.
func (r *MessageRepository) History(ctx context.Context, noteID int64) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, note_id, sender_id, sender_name, content, kind, created_at
		FROM note_messages
		WHERE note_id=$1
		ORDER BY created_at ASC, id ASC
	`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID, &m.NoteID, &m.SenderID, &m.SenderName,
			&m.Content, &m.Kind, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessageRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM note_messages`).Scan(&n)
	return n, err
}
