package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chat-memo/note-service/internal/domain"
)

type Options struct {
	// сколько пустая комната живёт до выселения
	IdleGrace time.Duration
	// потолок на запись сообщения в хранилище
	PersistTimeout time.Duration
	// лимит длины сообщения в рунах
	MaxMessageLen int
}

func (o Options) withDefaults() Options {
	if o.IdleGrace <= 0 {
		o.IdleGrace = time.Minute
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = 3 * time.Second
	}
	if o.MaxMessageLen <= 0 {
		o.MaxMessageLen = 500
	}
	return o
}

// Registry — noteID -> Room. Комнаты создаются лениво при первом join и
// выселяются джанитором после IdleGrace без зрителей. Глобального замка
// на операции комнат нет: mu защищает только саму мапу.
type Registry struct {
	store Store
	opts  Options

	mu    sync.Mutex
	rooms map[int64]*Room
}

func NewRegistry(store Store, opts Options) *Registry {
	return &Registry{
		store: store,
		opts:  opts.withDefaults(),
		rooms: make(map[int64]*Room),
	}
}

// Join резолвит (или создаёт) комнату и присоединяет участника.
// Гонка с выселением разрешается повтором: выселенная комната отвечает
// errEvicted, и join уходит в свежий экземпляр.
func (g *Registry) Join(ctx context.Context, noteID int64, participantID, name string, sub Subscriber) (int, error) {
	for {
		rm, err := g.getOrCreate(ctx, noteID)
		if err != nil {
			return 0, err
		}
		count, err := rm.Join(ctx, participantID, name, sub)
		if errors.Is(err, errEvicted) {
			g.drop(noteID, rm)
			continue
		}
		return count, err
	}
}

// Send без предварительного join невозможен: нет комнаты — нет членства.
// Отсутствующая комната при отсутствующей заметке — это NotFound
// (заметку удалили), иначе NotJoined.
func (g *Registry) Send(ctx context.Context, noteID int64, participantID, content string) (*domain.Message, error) {
	rm, ok := g.lookup(noteID)
	if !ok {
		exists, err := g.store.NoteExists(ctx, noteID)
		if err != nil {
			return nil, fmt.Errorf("%w: exists: %v", domain.ErrPersistence, err)
		}
		if !exists {
			return nil, domain.ErrNoteNotFound
		}
		return nil, domain.ErrNotJoined
	}
	return rm.Send(ctx, participantID, content)
}

func (g *Registry) Leave(noteID int64, participantID string) {
	if rm, ok := g.lookup(noteID); ok {
		rm.Leave(participantID)
	}
}

func (g *Registry) ViewerCount(noteID int64) int {
	rm, ok := g.lookup(noteID)
	if !ok {
		return 0
	}
	return rm.ViewerCount()
}

func (g *Registry) OpenRooms() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// CloseNote атомарно закрывает комнату удалённой заметки: участники
// получают терминальное note_deleted, дальнейшие join/send отвечают
// NotFound. Если комнаты нет, в реестр ставится уже закрытая: join,
// успевший увидеть заметку живой до удаления, найдёт её вместо того,
// чтобы молча создать свежую комнату под несуществующей заметкой.
// Закрытая комната остаётся в мапе до ближайшего прохода джанитора.
func (g *Registry) CloseNote(noteID int64) {
	g.mu.Lock()
	rm, ok := g.rooms[noteID]
	if !ok {
		rm = newRoom(noteID, g.store, g.opts)
		g.rooms[noteID] = rm
	}
	g.mu.Unlock()

	rm.Close()
	slog.Info("note room closed", "note_id", noteID)
}

// Run — джанитор выселения; останавливается по ctx.
func (g *Registry) Run(ctx context.Context) {
	every := g.opts.IdleGrace / 2
	if every < time.Second {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := g.evictIdle(now); n > 0 {
				slog.Debug("idle rooms evicted", "count", n)
			}
		}
	}
}

func (g *Registry) evictIdle(now time.Time) int {
	g.mu.Lock()
	candidates := make(map[int64]*Room, len(g.rooms))
	for id, rm := range g.rooms {
		candidates[id] = rm
	}
	g.mu.Unlock()

	n := 0
	for id, rm := range candidates {
		if rm.maybeEvict(now, g.opts.IdleGrace) {
			g.drop(id, rm)
			n++
		}
	}
	return n
}

func (g *Registry) getOrCreate(ctx context.Context, noteID int64) (*Room, error) {
	g.mu.Lock()
	if rm, ok := g.rooms[noteID]; ok {
		g.mu.Unlock()
		return rm, nil
	}
	g.mu.Unlock()

	// существование заметки проверяем вне замка реестра
	exists, err := g.store.NoteExists(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("%w: exists: %v", domain.ErrPersistence, err)
	}
	if !exists {
		return nil, domain.ErrNoteNotFound
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if rm, ok := g.rooms[noteID]; ok {
		return rm, nil
	}
	rm := newRoom(noteID, g.store, g.opts)
	g.rooms[noteID] = rm
	return rm, nil
}

func (g *Registry) lookup(noteID int64) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rm, ok := g.rooms[noteID]
	return rm, ok
}

// drop удаляет комнату из мапы, только если там всё ещё тот же экземпляр:
// join мог уже пересоздать комнату под тем же noteID.
func (g *Registry) drop(noteID int64, rm *Room) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.rooms[noteID]; ok && cur == rm {
		delete(g.rooms, noteID)
	}
}
