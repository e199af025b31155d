package httpapi

import (
	"encoding/json"
	"net/http"

	"nlsqld/apperr"
	"nlsqld/coordinator"
	"nlsqld/executor"
)

type fullResponse struct {
	OK     bool           `json:"ok"`
	Answer string         `json:"answer"`
	SQL    string         `json:"sql"`
	Rows   []executor.Row `json:"rows"`
}

type minimalResponse struct {
	OK     bool   `json:"ok"`
	Answer string `json:"answer"`
}

type errorResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Detail any    `json:"detail,omitempty"`
}

func writeSuccess(w http.ResponseWriter, resp *coordinator.Response, minimal bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if minimal {
		json.NewEncoder(w).Encode(minimalResponse{OK: true, Answer: resp.Answer})
		return
	}

	json.NewEncoder(w).Encode(fullResponse{OK: true, Answer: resp.Answer, SQL: resp.SQL, Rows: resp.Rows})
}

func writeError(w http.ResponseWriter, apiErr *apperr.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus())
	json.NewEncoder(w).Encode(errorResponse{
		OK:     false,
		Error:  apiErr.ClientMessage(),
		Kind:   string(apiErr.Kind),
		Detail: apiErr.Detail,
	})
}
