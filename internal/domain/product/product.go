package product

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors returned when a catalog cannot be built.
var (
	ErrDuplicate    = errors.New("duplicate product")
	ErrInvalidPrice = errors.New("price must not be negative")
	ErrEmptyName    = errors.New("product name required")
)

// Product represents a catalog item available for purchase. Products are
// values: two products with the same fields are the same product.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
}

// New builds a Product whose ID is derived from its name.
func New(name string, price decimal.Decimal, category string) Product {
	return Product{
		ID:       IDFromName(name),
		Name:     name,
		Price:    price,
		Category: category,
	}
}

// IsZero reports whether p is the zero Product, the "no product" value.
func (p Product) IsZero() bool {
	return p.ID == "" && p.Name == ""
}

// IDFromName returns the stable identifier for a product name: lower case,
// surrounding space trimmed, inner whitespace runs replaced by "-".
func IDFromName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// Repository is a source of products used to seed a Catalog at startup.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
}
