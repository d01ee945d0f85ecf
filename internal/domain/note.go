package domain

import "time"

type Note struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	ShareKey  *string   `db:"share_key"`
	IsPublic  bool      `db:"is_public"`
	ViewCount int64     `db:"view_count"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	// заполняются при выборке списков
	MessageCount int64
	Tags         []Tag
}
