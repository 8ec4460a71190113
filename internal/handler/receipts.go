package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
)

// ListReceipts serves GET /api/receipts?limit=N, newest first.
func (h *Handler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	receipts, err := h.svc.History(r.Context(), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, rec := range receipts {
				encodeReceipt(e, rec, nil)
			}
		})
	})
}
