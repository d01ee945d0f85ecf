package ws

import (
	"errors"
	"testing"
	"time"

	"github.com/chat-memo/note-service/internal/domain"
	"github.com/chat-memo/note-service/internal/room"
)

func TestDeliverMapsEvents(t *testing.T) {
	s := newSession(nil, 8)

	msg := &domain.Message{
		ID: 7, NoteID: 1, SenderID: "abc", SenderName: "Alice",
		Content: "hi", Kind: domain.KindUser, CreatedAt: time.Now(),
	}
	events := []room.Event{
		{Kind: room.EventJoined, NoteID: 1, Count: 2, Messages: []domain.Message{*msg}},
		{Kind: room.EventMessage, NoteID: 1, Message: msg},
		{Kind: room.EventViewerCount, NoteID: 1, Count: 3},
		{Kind: room.EventNoteDeleted, NoteID: 1},
	}
	for _, ev := range events {
		if err := s.Deliver(ev); err != nil {
			t.Fatalf("deliver %v: %v", ev.Kind, err)
		}
	}

	wantTypes := []string{TypeNoteJoined, TypeNewMessage, TypeViewerCount, TypeNoteDeleted}
	for _, want := range wantTypes {
		select {
		case env := <-s.send:
			if env.Type != want {
				t.Fatalf("got %q, want %q", env.Type, want)
			}
		default:
			t.Fatalf("missing %q in outbound queue", want)
		}
	}
}

func TestSessionIDs(t *testing.T) {
	a, b := newSession(nil, 1), newSession(nil, 1)
	if a.id == b.id {
		t.Fatalf("session ids collided: %s", a.id)
	}
	if len(a.id) != 36 {
		t.Fatalf("expected a full uuid, got %q", a.id)
	}
}

func TestDeliverOverflow(t *testing.T) {
	s := newSession(nil, 1)
	ev := room.Event{Kind: room.EventViewerCount, NoteID: 1, Count: 1}

	if err := s.Deliver(ev); err != nil {
		t.Fatalf("first deliver: %v", err)
	}
	if err := s.Deliver(ev); !errors.Is(err, domain.ErrSlowConsumer) {
		t.Fatalf("overflow must return ErrSlowConsumer, got %v", err)
	}
}

func TestNoteDeletedForgetsRoom(t *testing.T) {
	s := newSession(nil, 8)
	s.trackRoom(1)
	s.trackRoom(2)

	if err := s.Deliver(room.Event{Kind: room.EventNoteDeleted, NoteID: 1}); err != nil {
		t.Fatal(err)
	}
	rooms := s.joinedRooms()
	if len(rooms) != 1 || rooms[0] != 2 {
		t.Fatalf("joined rooms after note_deleted: %v", rooms)
	}
}

func TestDecode(t *testing.T) {
	raw := map[string]interface{}{"note_id": float64(5), "sender_name": "Bob", "content": "hey"}
	var p SendMessagePayload
	if err := decode(raw, &p); err != nil {
		t.Fatal(err)
	}
	if p.NoteID != 5 || p.Content != "hey" {
		t.Fatalf("decoded: %+v", p)
	}
}
