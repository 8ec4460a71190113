package httpmiddleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes the API error body {"code":...,"message":...}.
func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"message": message,
	})
}
