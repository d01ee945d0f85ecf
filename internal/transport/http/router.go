package http

import (
	"net/http"
	"time"

	httpmw "github.com/chat-memo/note-service/internal/transport/http/middleware"
	"github.com/chat-memo/note-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, wsServer *ws.Server, adminPassword string) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httpmw.Logging)

	// WS endpoint
	r.Get("/ws", wsServer.HandleWS)

	r.Group(func(api chi.Router) {
		api.Use(middlewareChi.Timeout(30 * time.Second))

		api.Route("/api", func(ar chi.Router) {
			ar.Get("/notes", h.ListNotes)
			ar.Get("/notes/{id}", h.GetNote)
			ar.Get("/notes/{id}/viewers", h.GetViewers)
			ar.Get("/share/{key}", h.GetNoteByShareKey)
			ar.Get("/search", h.Search)
			ar.Get("/tags", h.ListTags)
		})

		// модерация: вызывающий авторизуется паролем, дальше операции
		// считаются предавторизованными
		api.Route("/admin", func(ad chi.Router) {
			ad.Use(httpmw.AdminAuth(adminPassword))
			ad.Get("/stats", h.AdminStats)
			ad.Delete("/notes/{id}", h.DeleteNote)
			ad.Delete("/tags/{id}", h.DeleteTag)
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
