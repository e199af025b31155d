package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// withRequestID assigns each request a short-lived correlation ID for the
// log lines it produces and stamps it on the response so a caller can
// quote it back when reporting an issue.
func (s *Server) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)

		start := time.Now()
		next(w, r)
		s.logf("request %s %s completed in %s", id, r.URL.Path, time.Since(start))
	}
}
