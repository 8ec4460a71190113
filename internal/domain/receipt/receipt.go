// Package receipt defines the immutable record produced when a cart is
// checked out or saved, and the collaborators that persist it.
package receipt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind distinguishes completed purchases from saved carts.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindSnapshot Kind = "snapshot"
)

// Line is one product entry of a cart or receipt.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// NewLine computes the line total for quantity units at unitPrice.
func NewLine(productID, name string, unitPrice decimal.Decimal, quantity int) Line {
	return Line{
		ProductID: productID,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  quantity,
		LineTotal: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// String renders the line for display, e.g. "Apple - $0.99 x 3 = $2.97".
func (l Line) String() string {
	return fmt.Sprintf("%s - %s x %d = %s", l.Name, Money(l.UnitPrice), l.Quantity, Money(l.LineTotal))
}

// Receipt is a point-in-time record of cart lines and their total.
// Values returned by New must not be modified.
type Receipt struct {
	ID        string
	Kind      Kind
	Lines     []Line
	Total     decimal.Decimal
	CreatedAt time.Time
}

// New creates a Receipt with a fresh ID. Lines are copied.
func New(kind Kind, lines []Line, total decimal.Decimal, createdAt time.Time) Receipt {
	cp := make([]Line, len(lines))
	copy(cp, lines)
	return Receipt{
		ID:        uuid.New().String(),
		Kind:      kind,
		Lines:     cp,
		Total:     total,
		CreatedAt: createdAt,
	}
}

// IsEmpty reports whether the receipt has no lines.
func (r Receipt) IsEmpty() bool {
	return len(r.Lines) == 0
}

// Money formats an amount rounded to cents with a dollar sign.
func Money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Writer persists receipts.
type Writer interface {
	Write(ctx context.Context, r Receipt) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, r Receipt) error

// Write calls f.
func (f WriterFunc) Write(ctx context.Context, r Receipt) error {
	return f(ctx, r)
}

// History reads back previously written purchase receipts, newest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]Receipt, error)
}
