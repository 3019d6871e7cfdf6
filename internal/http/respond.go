package httpx

import (
	"encoding/json"
	"net/http"
)

// writeJSON encodes payload with the given status. Encoding failures
// after the header is written cannot be reported to the client, so the
// error is dropped.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError emits the `{"error": msg}` envelope every failure response
// of this API uses.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
