package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSON writes data as a JSON body with the given status. The header is
// already committed by the time encoding can fail, so failures are logged
// rather than rewritten.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// ErrorResponse is the uniform error body. RequestID repeats the id the
// request-id middleware stamped on the response headers, so clients can
// quote it when reporting a failure.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func Error(w http.ResponseWriter, status int, err string, message string) {
	JSON(w, status, ErrorResponse{
		Error:     err,
		Message:   message,
		RequestID: w.Header().Get("X-Request-Id"),
	})
}
