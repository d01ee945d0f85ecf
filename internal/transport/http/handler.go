package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/chat-memo/note-service/internal/domain"
	"github.com/chat-memo/note-service/internal/service"

	"github.com/go-chi/chi/v5"
)

// Presence — read-only срез живого состояния комнат плюс закрытие при
// модерации; реализуется room.Registry.
type Presence interface {
	ViewerCount(noteID int64) int
	OpenRooms() int
	CloseNote(noteID int64)
}

// TagBroadcaster — глобальное оповещение подключённых клиентов;
// реализуется ws.Server.
type TagBroadcaster interface {
	BroadcastTagDeleted(tagID int64, tagName string)
}

type Handler struct {
	noteSvc  *service.NoteService
	tagSvc   *service.TagService
	presence Presence
	notify   TagBroadcaster
}

func NewHandler(noteSvc *service.NoteService, tagSvc *service.TagService, presence Presence, notify TagBroadcaster) *Handler {
	return &Handler{
		noteSvc:  noteSvc,
		tagSvc:   tagSvc,
		presence: presence,
		notify:   notify,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /api/notes
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.noteSvc.List(r.Context())
	if err != nil {
		slog.Error("handler.ListNotes:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, NotesResponse{Notes: mapNotes(notes)})
}

// GET /api/search?q=&tags=&tags=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	tags := r.URL.Query()["tags"]

	notes, err := h.noteSvc.Search(r.Context(), q, tags)
	if err != nil {
		slog.Error("handler.Search:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, NotesResponse{Notes: mapNotes(notes)})
}

// GET /api/notes/{id}
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid note id"})
		return
	}
	note, err := h.noteSvc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNoteNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "note not found"})
			return
		}
		slog.Error("handler.GetNote:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, mapNote(note))
}

// GET /api/share/{key}
func (h *Handler) GetNoteByShareKey(w http.ResponseWriter, r *http.Request) {
	note, err := h.noteSvc.GetByShareKey(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		if errors.Is(err, domain.ErrNoteNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "note not found"})
			return
		}
		slog.Error("handler.GetNoteByShareKey:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, mapNote(note))
}

// GET /api/notes/{id}/viewers
func (h *Handler) GetViewers(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid note id"})
		return
	}
	writeJSON(w, http.StatusOK, ViewersResponse{NoteID: id, Count: h.presence.ViewerCount(id)})
}

// GET /api/tags
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tagSvc.List(r.Context())
	if err != nil {
		slog.Error("handler.ListTags:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	items := make([]TagItem, 0, len(tags))
	for i := range tags {
		items = append(items, mapTag(&tags[i]))
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: items})
}

// GET /admin/stats
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.noteSvc.Stats(r.Context())
	if err != nil {
		slog.Error("handler.AdminStats:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		TotalNotes:    st.TotalNotes,
		TotalMessages: st.TotalMessages,
		ActiveTags:    st.ActiveTags,
		OpenRooms:     h.presence.OpenRooms(),
	})
}

// DELETE /admin/notes/{id} — модерация: сначала хранилище, затем
// закрытие комнаты с терминальным note_deleted её участникам.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid note id"})
		return
	}
	if err := h.noteSvc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNoteNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "note not found"})
			return
		}
		slog.Error("handler.DeleteNote:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	h.presence.CloseNote(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// DELETE /admin/tags/{id} — глобальный tag_deleted всем подключённым.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid tag id"})
		return
	}
	name, err := h.tagSvc.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrTagNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "tag not found"})
			return
		}
		slog.Error("handler.DeleteTag:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	h.notify.BroadcastTagDeleted(id, name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
