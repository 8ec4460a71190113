package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/receipt"
	"github.com/xenking/storefront/internal/domain/session"
)

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

// encodeMoney writes amounts as JSON numbers with two decimals.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
	})
}

func encodeProducts(e *jx.Encoder, products []product.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			encodeProduct(e, p)
		}
	})
}

func encodeLines(e *jx.Encoder, lines []receipt.Line) {
	e.Arr(func(e *jx.Encoder) {
		for _, l := range lines {
			e.Obj(func(e *jx.Encoder) {
				e.Field("product_id", func(e *jx.Encoder) { e.Str(l.ProductID) })
				e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
				e.Field("unit_price", func(e *jx.Encoder) { encodeMoney(e, l.UnitPrice) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
				e.Field("line_total", func(e *jx.Encoder) { encodeMoney(e, l.LineTotal) })
			})
		}
	})
}

func encodeCart(e *jx.Encoder, v session.CartView) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(v.ID) })
		e.Field("items", func(e *jx.Encoder) { encodeLines(e, v.Lines) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, v.Total) })
	})
}

// encodeReceipt writes r; extra adds fields such as "persisted".
func encodeReceipt(e *jx.Encoder, r receipt.Receipt, extra func(e *jx.Encoder)) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(r.ID) })
		e.Field("kind", func(e *jx.Encoder) { e.Str(string(r.Kind)) })
		e.Field("created_at", func(e *jx.Encoder) { e.Str(r.CreatedAt.UTC().Format(time.RFC3339)) })
		e.Field("items", func(e *jx.Encoder) { encodeLines(e, r.Lines) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, r.Total) })
		if extra != nil {
			extra(e)
		}
	})
}

// itemRequest is the body of POST /api/carts/{id}/items.
type itemRequest struct {
	Name     string
	Quantity int
}

// readItemRequest decodes {"name": string, "quantity": int}. Quantity
// defaults to 1; unknown fields are skipped.
func readItemRequest(r *http.Request, w http.ResponseWriter) (itemRequest, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return itemRequest{}, errors.Wrap(err, "malformed request body")
	}

	req := itemRequest{Quantity: 1}
	err = jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "name":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "name")
			}
			req.Name = v
		case "quantity":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "quantity")
			}
			req.Quantity = v
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return itemRequest{}, errors.Wrap(err, "malformed request body")
	}
	return req, nil
}
