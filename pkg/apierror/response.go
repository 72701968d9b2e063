package apierror

import (
	"encoding/json"
	"net/http"
)

// ContentType for JSON responses.
const ContentType = "application/json"

// WriteJSON writes v as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, contentType string, v any) {
	if contentType == "" {
		contentType = ContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write writes an Error with its status. A zero status becomes 500.
func Write(w http.ResponseWriter, e Error) {
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteJSON(w, status, ContentType, e)
}
