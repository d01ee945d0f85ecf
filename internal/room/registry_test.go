package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chat-memo/note-service/internal/domain"
)

// хранилище, позволяющее вклинить действие ровно после того, как проверка
// существования заметки отработала
type raceStore struct {
	*fakeStore
	afterExists func()
}

func (s *raceStore) NoteExists(ctx context.Context, noteID int64) (bool, error) {
	ok, err := s.fakeStore.NoteExists(ctx, noteID)
	if fn := s.afterExists; fn != nil {
		s.afterExists = nil
		fn()
	}
	return ok, err
}

func TestIdleEvictionAndRecreate(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(1)
	reg := newTestRegistry(store)

	alice := newFakeSub("a1")
	if _, err := reg.Join(ctx, 1, alice.id, "Alice", alice); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Send(ctx, 1, alice.id, "ephemeral"); err != nil {
		t.Fatal(err)
	}
	reg.Leave(1, alice.id)

	// пока grace не вышел — комната живёт
	if n := reg.evictIdle(time.Now()); n != 0 {
		t.Fatalf("evicted too early: %d", n)
	}
	if reg.OpenRooms() != 1 {
		t.Fatalf("room disappeared before grace")
	}

	if n := reg.evictIdle(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("idle room not evicted")
	}
	if reg.OpenRooms() != 0 {
		t.Fatalf("room still registered after eviction")
	}

	// повторный join пересоздаёт комнату; системные сообщения прежней
	// инкарнации в памяти не переживают выселение
	bob := newFakeSub("b1")
	count, err := reg.Join(ctx, 1, bob.id, "Bob", bob)
	if err != nil {
		t.Fatalf("rejoin after eviction: %v", err)
	}
	if count != 1 {
		t.Fatalf("count in fresh room: %d", count)
	}
	snap, _ := bob.snapshot(t)
	user := userContents(snap)
	if len(user) != 1 || user[0] != "ephemeral" {
		t.Fatalf("persisted history must survive eviction: %v", user)
	}
	for _, m := range snap {
		if m.Content == "Alice joined" {
			t.Fatalf("stale in-memory system message leaked into fresh room")
		}
	}
}

func TestJoinRacesEviction(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(newFakeStore(1))

	alice := newFakeSub("a1")
	if _, err := reg.Join(ctx, 1, alice.id, "Alice", alice); err != nil {
		t.Fatal(err)
	}
	reg.Leave(1, alice.id)

	// джанитор пометил комнату, но ещё не выбросил её из мапы:
	// join обязан увидеть evicted и уйти в свежий экземпляр
	rm, ok := reg.lookup(1)
	if !ok {
		t.Fatal("room missing")
	}
	if !rm.maybeEvict(time.Now().Add(2*time.Minute), reg.opts.IdleGrace) {
		t.Fatal("maybeEvict refused an idle room")
	}

	bob := newFakeSub("b1")
	count, err := reg.Join(ctx, 1, bob.id, "Bob", bob)
	if err != nil {
		t.Fatalf("join racing eviction: %v", err)
	}
	if count != 1 {
		t.Fatalf("count: %d", count)
	}
	cur, ok := reg.lookup(1)
	if !ok || cur == rm {
		t.Fatalf("join landed in the evicted instance")
	}
}

func TestJoinRacesDelete(t *testing.T) {
	ctx := context.Background()
	store := &raceStore{fakeStore: newFakeStore(1)}
	reg := newTestRegistry(store)

	// заметку удаляют сразу после того, как проверка существования для
	// join увидела её живой — до регистрации комнаты в мапе
	store.afterExists = func() {
		store.mu.Lock()
		delete(store.notes, 1)
		store.mu.Unlock()
		reg.CloseNote(1)
	}

	if _, err := reg.Join(ctx, 1, "a1", "Alice", newFakeSub("a1")); !errors.Is(err, domain.ErrNoteNotFound) {
		t.Fatalf("join racing delete must answer not found, got %v", err)
	}
	if reg.ViewerCount(1) != 0 {
		t.Fatalf("member survived into a deleted note")
	}
	// закрытая комната не живёт дольше ближайшего прохода джанитора
	if n := reg.evictIdle(time.Now()); n != 1 {
		t.Fatalf("closed room not swept: %d", n)
	}
	if reg.OpenRooms() != 0 {
		t.Fatalf("rooms left after sweep: %d", reg.OpenRooms())
	}
}

func TestCloseNoteScenario(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(1)
	reg := newTestRegistry(store)

	alice := newFakeSub("a1")
	bob := newFakeSub("b1")
	if _, err := reg.Join(ctx, 1, alice.id, "Alice", alice); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Join(ctx, 1, bob.id, "Bob", bob); err != nil {
		t.Fatal(err)
	}

	// заметку удалили из хранилища, комнату закрыли
	store.mu.Lock()
	delete(store.notes, 1)
	store.mu.Unlock()
	reg.CloseNote(1)

	for _, sub := range []*fakeSub{alice, bob} {
		if !sub.sawNoteDeleted() {
			t.Fatalf("%s missed note_deleted", sub.id)
		}
	}
	if reg.ViewerCount(1) != 0 {
		t.Fatalf("closed room still has viewers")
	}

	// закрытая комната ещё в реестре: и send, и join отвечают NotFound
	if _, err := reg.Send(ctx, 1, alice.id, "too late"); !errors.Is(err, domain.ErrNoteNotFound) {
		t.Fatalf("send into closed room: %v", err)
	}
	if _, err := reg.Join(ctx, 1, "c1", "Carol", newFakeSub("c1")); !errors.Is(err, domain.ErrNoteNotFound) {
		t.Fatalf("join into closed room: %v", err)
	}

	// джанитор выметает закрытую комнату; после этого NotFound приходит
	// уже по отсутствию заметки в хранилище
	if n := reg.evictIdle(time.Now()); n != 1 {
		t.Fatalf("closed room not swept: %d", n)
	}
	if _, err := reg.Send(ctx, 1, alice.id, "still too late"); !errors.Is(err, domain.ErrNoteNotFound) {
		t.Fatalf("send after sweep: %v", err)
	}
}

func TestCloseNoteWithoutRoom(t *testing.T) {
	reg := newTestRegistry(newFakeStore(1))

	// комнаты ещё не было: закрытие оставляет в реестре уже закрытую,
	// чтобы гонящийся join не создал живую комнату под удалённой заметкой
	reg.CloseNote(1)
	if reg.OpenRooms() != 1 {
		t.Fatalf("closed room not registered: %d", reg.OpenRooms())
	}
	if _, err := reg.Join(context.Background(), 1, "x", "X", newFakeSub("x")); !errors.Is(err, domain.ErrNoteNotFound) {
		t.Fatalf("join into closed note: %v", err)
	}
	if n := reg.evictIdle(time.Now()); n != 1 {
		t.Fatalf("closed room not swept: %d", n)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.IdleGrace <= 0 || o.PersistTimeout <= 0 || o.MaxMessageLen <= 0 {
		t.Fatalf("defaults not applied: %+v", o)
	}
}
