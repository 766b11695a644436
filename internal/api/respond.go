package api

import (
	"encoding/json"
	"net/http"
)

// writeJSON sends v as a JSON response body. Encoding failures after the
// header is written cannot be reported to the client and are swallowed.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
