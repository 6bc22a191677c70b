package transport

import (
	"encoding/json"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// errorResponse is the wire shape for API failures. The message is
// whatever the orchestrator's error mapper produced, which means
// unclassified upstream failures already arrive generic.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	TextCode   string `json:"textCode,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{
		StatusCode: http.StatusBadRequest,
		Message:    "An unexpected error occurred",
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Code != 0 {
			resp.StatusCode = richErr.Code
		}
		if richErr.Message != "" {
			resp.Message = richErr.Message
		}
		resp.TextCode = richErr.TextCode
	}
	writeJSON(w, resp.StatusCode, resp)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		StatusCode: http.StatusBadRequest,
		Message:    message,
	})
}
