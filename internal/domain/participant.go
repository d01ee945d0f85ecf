package domain

import "time"

// Participant — подключённый зритель заметки. ID выдаётся на время жизни
// соединения и нигде не переживает disconnect.
type Participant struct {
	ID       string
	Name     string
	NoteID   int64
	JoinedAt time.Time
}
