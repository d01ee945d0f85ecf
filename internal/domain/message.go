package domain

import "time"

type MessageKind string

const (
	KindUser   MessageKind = "user"
	KindSystem MessageKind = "system"
)

type Message struct {
	ID         int64       `db:"id"`
	NoteID     int64       `db:"note_id"`
	SenderID   string      `db:"sender_id"` // пустой для системных сообщений
	SenderName string      `db:"sender_name"`
	Content    string      `db:"content"`
	Kind       MessageKind `db:"kind"`
	CreatedAt  time.Time   `db:"created_at"`
}
