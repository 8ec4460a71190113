package product

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Catalog is a fixed, read-only set of products. It is safe for concurrent
// use because nothing mutates it after NewCatalog returns.
type Catalog struct {
	products []Product
	byID     map[string]int
	byName   map[string]int
}

// NewCatalog builds a Catalog preserving the order of products. Products
// without an ID get one derived from their name.
func NewCatalog(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
		byName:   make(map[string]int, len(products)),
	}
	for _, p := range products {
		if strings.TrimSpace(p.Name) == "" {
			return nil, ErrEmptyName
		}
		if p.ID == "" {
			p.ID = IDFromName(p.Name)
		}
		if p.Price.IsNegative() {
			return nil, errors.Wrapf(ErrInvalidPrice, "product %q", p.Name)
		}
		name := strings.ToLower(p.Name)
		if _, ok := c.byName[name]; ok {
			return nil, errors.Wrapf(ErrDuplicate, "name %q", p.Name)
		}
		if _, ok := c.byID[p.ID]; ok {
			return nil, errors.Wrapf(ErrDuplicate, "id %q", p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.byName[name] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// LoadCatalog builds a Catalog from repo, falling back to DefaultProducts
// when the repository holds no products.
func LoadCatalog(ctx context.Context, repo Repository) (*Catalog, error) {
	products, err := repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	if len(products) == 0 {
		products = DefaultProducts()
	}
	return NewCatalog(products)
}

// All returns every product in catalog order. The slice is a copy.
func (c *Catalog) All() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// ByCategory returns the products whose category equals category, ignoring case.
func (c *Catalog) ByCategory(category string) []Product {
	return c.filter(func(p Product) bool {
		return strings.EqualFold(p.Category, category)
	})
}

// ByName returns the product named name, ignoring case.
func (c *Catalog) ByName(name string) (Product, bool) {
	i, ok := c.byName[strings.ToLower(name)]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// ByID returns the product with the given identifier.
func (c *Catalog) ByID(id string) (Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Search returns the products whose name contains query, ignoring case.
// An empty query matches every product.
func (c *Catalog) Search(query string) []Product {
	q := strings.ToLower(query)
	return c.filter(func(p Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q)
	})
}

// Categories returns the distinct categories in order of first appearance.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range c.products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

func (c *Catalog) filter(keep func(Product) bool) []Product {
	out := make([]Product, 0)
	for _, p := range c.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// DefaultProducts returns the built-in sample catalog.
func DefaultProducts() []Product {
	return []Product{
		New("Apple", decimal.RequireFromString("0.99"), "Fruits"),
		New("Banana", decimal.RequireFromString("0.59"), "Fruits"),
		New("Orange", decimal.RequireFromString("0.79"), "Fruits"),
		New("Milk", decimal.RequireFromString("1.50"), "Dairy"),
		New("Bread", decimal.RequireFromString("1.25"), "Bakery"),
		New("Eggs", decimal.RequireFromString("2.00"), "Dairy"),
		New("Cheese", decimal.RequireFromString("2.50"), "Dairy"),
		New("Chicken", decimal.RequireFromString("4.99"), "Meat"),
		New("Beef", decimal.RequireFromString("5.49"), "Meat"),
		New("Water Bottle", decimal.RequireFromString("0.99"), "Beverages"),
	}
}

// DefaultCatalog returns a Catalog of DefaultProducts.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultProducts())
	if err != nil {
		panic(err)
	}
	return c
}
