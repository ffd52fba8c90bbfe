package response

import (
	"encoding/json"
	"net/http"

	"github.com/danilofalcao/llama-gateway/internal/backend"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON response with proper headers
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": message} with the given status.
func WriteError(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, ErrorResponse{Error: message})
}

// StatusFor maps a dispatch error to the HTTP status reported to clients.
func StatusFor(err error) int {
	switch backend.KindOf(err) {
	case backend.KindInvalidRequest, backend.KindInvalidMode:
		return http.StatusBadRequest
	case backend.KindNotFound:
		return http.StatusNotFound
	case backend.KindUnsupported:
		return http.StatusUnprocessableEntity
	case backend.KindUnconfigured:
		return http.StatusServiceUnavailable
	case backend.KindBackendFailure:
		return http.StatusBadGateway
	case backend.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
