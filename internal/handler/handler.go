// Package handler exposes the storefront session service as a JSON HTTP API.
package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/session"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	maxBodyBytes        = 64 << 10
	maxItemQuantity     = 10000
)

// Handler serves the /api routes.
type Handler struct {
	svc *session.Service
}

// New returns a Handler backed by svc.
func New(svc *session.Service) *Handler {
	return &Handler{svc: svc}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{name}", h.GetProduct)
	mux.HandleFunc("GET /api/categories", h.ListCategories)

	mux.HandleFunc("POST /api/carts", h.CreateCart)
	mux.HandleFunc("GET /api/carts/{id}", h.GetCart)
	mux.HandleFunc("DELETE /api/carts/{id}", h.DeleteCart)
	mux.HandleFunc("POST /api/carts/{id}/items", h.AddItem)
	mux.HandleFunc("DELETE /api/carts/{id}/items/{name}", h.RemoveItem)
	mux.HandleFunc("POST /api/carts/{id}/checkout", h.Checkout)
	mux.HandleFunc("POST /api/carts/{id}/snapshot", h.Snapshot)

	mux.HandleFunc("GET /api/receipts", h.ListReceipts)
}

// fail maps service errors to API errors. Anything unexpected is logged and
// reported as 500.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrTooManySessions):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, session.ErrNoHistory):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
