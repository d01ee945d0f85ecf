package domain

import "time"

const DefaultTagColor = "#667eea"

type Tag struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Color     string    `db:"color"`
	CreatedAt time.Time `db:"created_at"`

	NoteCount int64
}
