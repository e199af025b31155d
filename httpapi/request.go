package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"nlsqld/apperr"
)

// queryRequest is the wire shape of a POST /query body.
type queryRequest struct {
	Question string `json:"question"`
	Minimal  bool   `json:"minimal"`
}

func decodeQueryRequest(r *http.Request) (queryRequest, *apperr.APIError) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return queryRequest{}, apperr.BadJSON(err)
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return queryRequest{}, apperr.MissingQuestion()
	}

	if r.Header.Get("x-minimal") == "1" {
		req.Minimal = true
	}

	return req, nil
}
