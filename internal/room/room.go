package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/chat-memo/note-service/internal/domain"
)

// Store — контракт хранилища, который нужен комнате. История грузится
// не более одного раза на комнату, запись — только внутри Send.
type Store interface {
	NoteExists(ctx context.Context, noteID int64) (bool, error)
	LoadHistory(ctx context.Context, noteID int64) ([]domain.Message, error)
	AppendMessage(ctx context.Context, msg *domain.Message) error
}

type EventKind int

const (
	EventMessage EventKind = iota
	EventViewerCount
	EventNoteDeleted
	EventJoined
)

type Event struct {
	Kind     EventKind
	NoteID   int64
	Count    int
	Message  *domain.Message
	Messages []domain.Message // снапшот лога, только для EventJoined
}

// Subscriber — исходящая очередь участника. Deliver обязан быть
// неблокирующим: при переполнении возвращает domain.ErrSlowConsumer,
// после чего комната принудительно отключает участника через Kick.
type Subscriber interface {
	ID() string
	Deliver(ev Event) error
	Kick(reason string)
}

// внутренний сигнал реестру: комната выселена, join нужно повторить
var errEvicted = errors.New("room evicted")

type member struct {
	sub Subscriber
	p   domain.Participant
}

// Room — акторное состояние одной заметки: участники, упорядоченный лог
// сообщений, флаг закрытия. Все мутации сериализованы mu; комнаты между
// собой независимы.
type Room struct {
	noteID int64
	store  Store
	opts   Options

	mu         sync.Mutex
	members    map[string]*member
	log        []domain.Message
	dead       []string // переполнившиеся подписчики, снимаются в reapLocked
	loaded     bool
	closed     bool
	evicted    bool
	emptySince time.Time
}

func newRoom(noteID int64, store Store, opts Options) *Room {
	return &Room{
		noteID:     noteID,
		store:      store,
		opts:       opts,
		members:    make(map[string]*member),
		emptySince: time.Now(),
	}
}

// Join добавляет участника и возвращает текущее число зрителей. Снапшот
// лога кладётся в очередь вошедшего событием note_joined внутри
// критической секции: сообщение, отправленное после join, не может
// оказаться в очереди раньше снапшота. Повторный join того же
// participantID — это rename: имя обновляется на месте, счётчик и
// системные сообщения не трогаются.
func (r *Room) Join(ctx context.Context, participantID, name string, sub Subscriber) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, domain.ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.evicted {
		return 0, errEvicted
	}
	if r.closed {
		return 0, domain.ErrNoteNotFound
	}
	if err := r.ensureHistoryLocked(ctx); err != nil {
		return 0, err
	}

	if m, ok := r.members[participantID]; ok {
		m.p.Name = name
		r.deliverSnapshotLocked(participantID, m.sub)
		r.reapLocked()
		if _, still := r.members[participantID]; !still {
			return 0, domain.ErrSlowConsumer
		}
		return len(r.members), nil
	}

	r.members[participantID] = &member{
		sub: sub,
		p: domain.Participant{
			ID:       participantID,
			Name:     name,
			NoteID:   r.noteID,
			JoinedAt: time.Now(),
		},
	}

	// системное сообщение уходит остальным; новичок получит его в снапшоте
	r.appendSystemLocked(name+" joined", participantID)
	r.broadcastCountLocked()
	r.deliverSnapshotLocked(participantID, sub)
	r.reapLocked()
	if _, still := r.members[participantID]; !still {
		return 0, domain.ErrSlowConsumer
	}

	return len(r.members), nil
}

// Leave — no-op для неизвестного id.
func (r *Room) Leave(participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[participantID]
	if !ok {
		return
	}
	delete(r.members, participantID)
	if len(r.members) == 0 {
		r.emptySince = time.Now()
	}

	r.appendSystemLocked(m.p.Name+" left", "")
	r.broadcastCountLocked()
	r.reapLocked()
}

// Send валидирует, персистит и рассылает сообщение всем участникам,
// включая отправителя. При ошибке записи сообщение не попадает ни в лог,
// ни в чьи-либо очереди.
func (r *Room) Send(ctx context.Context, participantID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > r.opts.MaxMessageLen {
		return nil, domain.ErrMessageTooLong
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrNoteNotFound
	}
	m, ok := r.members[participantID]
	if !ok {
		return nil, domain.ErrNotJoined
	}

	msg := domain.Message{
		NoteID:     r.noteID,
		SenderID:   participantID,
		SenderName: m.p.Name,
		Content:    content,
		Kind:       domain.KindUser,
		CreatedAt:  time.Now(),
	}

	// единственная I/O-операция под замком комнаты; запись обязана
	// завершиться до того, как сообщение станет видимым
	pctx, cancel := context.WithTimeout(ctx, r.opts.PersistTimeout)
	err := r.store.AppendMessage(pctx, &msg)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: append: %v", domain.ErrPersistence, err)
	}

	r.log = append(r.log, msg)
	r.broadcastLocked(Event{Kind: EventMessage, NoteID: r.noteID, Message: &msg}, "")
	r.reapLocked()

	return &msg, nil
}

// Close закрывает комнату: рассылает терминальное note_deleted и
// сбрасывает участников. Дальнейшие join/send невозможны.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.broadcastLocked(Event{Kind: EventNoteDeleted, NoteID: r.noteID}, "")
	r.members = make(map[string]*member)
	r.dead = nil
	r.emptySince = time.Now()
}

func (r *Room) ViewerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// maybeEvict помечает пустующую дольше grace комнату выселенной.
// Join, успевший получить указатель на такую комнату, увидит evicted и
// повторит get-or-create — присоединение не теряется.
func (r *Room) maybeEvict(now time.Time, grace time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return true
	}
	if len(r.members) > 0 || now.Sub(r.emptySince) < grace {
		return false
	}
	r.evicted = true
	return true
}

// -------- внутреннее, всё только под r.mu --------

func (r *Room) ensureHistoryLocked(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	hist, err := r.store.LoadHistory(ctx, r.noteID)
	if err != nil {
		return fmt.Errorf("%w: load history: %v", domain.ErrPersistence, err)
	}
	r.log = append(r.log, hist...)
	r.loaded = true
	return nil
}

// переполнение очереди на самом снапшоте — тот же slow consumer
func (r *Room) deliverSnapshotLocked(participantID string, sub Subscriber) {
	ev := Event{
		Kind:     EventJoined,
		NoteID:   r.noteID,
		Count:    len(r.members),
		Messages: r.snapshotLocked(),
	}
	if err := sub.Deliver(ev); err != nil {
		r.dead = append(r.dead, participantID)
	}
}

func (r *Room) snapshotLocked() []domain.Message {
	out := make([]domain.Message, len(r.log))
	copy(out, r.log)
	return out
}

func (r *Room) appendSystemLocked(text, exceptID string) {
	msg := domain.Message{
		NoteID:    r.noteID,
		Content:   text,
		Kind:      domain.KindSystem,
		CreatedAt: time.Now(),
	}
	r.log = append(r.log, msg)
	r.broadcastLocked(Event{Kind: EventMessage, NoteID: r.noteID, Message: &msg}, exceptID)
}

func (r *Room) broadcastCountLocked() {
	r.broadcastLocked(Event{Kind: EventViewerCount, NoteID: r.noteID, Count: len(r.members)}, "")
}

func (r *Room) broadcastLocked(ev Event, exceptID string) {
	for id, m := range r.members {
		if id == exceptID {
			continue
		}
		if err := m.sub.Deliver(ev); err != nil {
			r.dead = append(r.dead, id)
		}
	}
}

// reapLocked отключает переполнившихся подписчиков штатным leave-протоколом:
// остальные участники получают "<name> left" и новый счётчик, само
// сообщение для них не теряется.
func (r *Room) reapLocked() {
	for len(r.dead) > 0 {
		id := r.dead[0]
		r.dead = r.dead[1:]

		m, ok := r.members[id]
		if !ok {
			continue
		}
		delete(r.members, id)
		if len(r.members) == 0 {
			r.emptySince = time.Now()
		}
		m.sub.Kick(domain.ErrSlowConsumer.Error())

		r.appendSystemLocked(m.p.Name+" left", "")
		r.broadcastCountLocked()
	}
}
