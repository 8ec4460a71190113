package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/session"
)

// CreateCart serves POST /api/carts.
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.NewCart()
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/carts/"+v.ID)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCart(e, v) })
}

// GetCart serves GET /api/carts/{id}.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Cart(r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, v)
}

// DeleteCart serves DELETE /api/carts/{id}.
func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DropCart(r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem serves POST /api/carts/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	req, err := readItemRequest(r, w)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > maxItemQuantity {
		writeError(w, http.StatusBadRequest, "quantity must be between 1 and "+strconv.Itoa(maxItemQuantity))
		return
	}
	if _, ok := h.svc.Catalog().ByName(req.Name); !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	v, err := h.svc.AddItem(r.PathValue("id"), req.Name, req.Quantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, v)
}

// RemoveItem serves DELETE /api/carts/{id}/items/{name}. With ?quantity=N it
// removes N units, otherwise one.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	quantity := 0
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "quantity must be a positive integer")
			return
		}
		quantity = n
	}

	v, err := h.svc.RemoveItem(r.PathValue("id"), r.PathValue("name"), quantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, v)
}

// Checkout serves POST /api/carts/{id}/checkout. The cart is emptied even
// when the receipt could not be stored; "persisted" reports which happened.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Checkout(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeReceipt(e, res.Receipt, func(e *jx.Encoder) {
			e.Field("persisted", func(e *jx.Encoder) { e.Bool(res.Persisted) })
		})
	})
}

// Snapshot serves POST /api/carts/{id}/snapshot.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.SaveSnapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, func(e *jx.Encoder) { encodeReceipt(e, rec, nil) })
}

func writeCart(w http.ResponseWriter, v session.CartView) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, v) })
}
