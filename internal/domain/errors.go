package domain

import "errors"

var (
	// валидация входных данных
	ErrEmptyName      = errors.New("display name is empty")
	ErrEmptyContent   = errors.New("message content is empty")
	ErrMessageTooLong = errors.New("message content is too long")
	ErrEmptyTitle     = errors.New("note title is empty")
	ErrEmptyTagName   = errors.New("tag name is empty")

	// состояние комнаты / участника
	ErrNotJoined    = errors.New("participant has not joined the note")
	ErrNoteNotFound = errors.New("note not found")
	ErrTagNotFound  = errors.New("tag not found")
	ErrTagExists    = errors.New("tag already exists")

	// доставка и хранение
	ErrPersistence  = errors.New("message persistence failed")
	ErrSlowConsumer = errors.New("participant outbound queue overflow")
)
