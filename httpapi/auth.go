package httpapi

import (
	"net/http"
	"net/url"

	"nlsqld/apperr"
)

// requireServiceKey enforces x-service-key on every request not already
// trusted as same-origin. Same-origin is decided by comparing the host
// portion of Origin (preferred) or Referer against the request's own Host
// header — there is no session/cookie state to rely on instead (§6).
func (s *Server) requireServiceKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.RequireServiceKey && sameOrigin(r) {
			next(w, r)
			return
		}

		if s.cfg.ServiceAPIKey == "" || r.Header.Get("x-service-key") != s.cfg.ServiceAPIKey {
			writeError(w, apperr.Unauthorized())
			return
		}

		next(w, r)
	}
}

func sameOrigin(r *http.Request) bool {
	if host := originHost(r.Header.Get("Origin")); host != "" {
		return host == r.Host
	}
	if host := originHost(r.Header.Get("Referer")); host != "" {
		return host == r.Host
	}
	return false
}

func originHost(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
