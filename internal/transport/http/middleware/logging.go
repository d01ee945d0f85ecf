package httpmw

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/chat-memo/note-service/pkg/logger"

	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

// Logging пишет метод, путь, статус, длительность и request id;
// trace-атрибуты добавляются, если в контексте есть span.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := middlewareChi.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(lrw, r)

		args := []any{
			slog.String("req_id", middlewareChi.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", lrw.Status()),
			slog.Int("bytes", lrw.BytesWritten()),
			slog.String("duration", time.Since(start).String()),
		}
		for _, a := range logger.AttrsFromCtx(r.Context()) {
			args = append(args, a)
		}
		slog.Info("http request", args...)
	})
}
