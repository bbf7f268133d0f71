package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"pipeconsole/internal/rpc"
)

// projectScope attaches the project a console request acts on. The
// X-Project-Id header wins over the project query parameter, which wins
// over fallback.
func projectScope(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			project := strings.TrimSpace(r.Header.Get(rpc.ProjectHeader))
			if project == "" {
				project = strings.TrimSpace(r.URL.Query().Get("project"))
			}
			if project == "" {
				project = fallback
			}
			if project != "" {
				r = r.WithContext(rpc.WithProject(r.Context(), project))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("console request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.String("project", rpc.ProjectFromContext(r.Context())),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}
