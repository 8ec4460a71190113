package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// ListProducts serves GET /api/products. ?category= filters by category and
// ?q= searches names; without either every product is returned.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	c := h.svc.Catalog()
	products := c.All()
	query := r.URL.Query()
	switch {
	case query.Has("category"):
		products = c.ByCategory(query.Get("category"))
	case query.Has("q"):
		products = c.Search(query.Get("q"))
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProducts(e, products) })
}

// GetProduct serves GET /api/products/{name}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.svc.Catalog().ByName(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p) })
}

// ListCategories serves GET /api/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	categories := h.svc.Catalog().Categories()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, c := range categories {
				e.Str(c)
			}
		})
	})
}
