package httpapi

import (
	"context"
	"errors"
	"net/http"

	"nlsqld/apperr"
)

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperr.MethodNotAllowed(r.Method))
		return
	}

	req, apiErr := decodeQueryRequest(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestDeadline)
	defer cancel()

	resp, apiErr := s.app.HandleQuestion(ctx, req.Question)
	if apiErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			writeError(w, apperr.DeadlineExceeded(apiErr))
			return
		}
		s.logf("query failed: %v", apiErr)
		writeError(w, apiErr)
		return
	}

	writeSuccess(w, resp, req.Minimal)
}
