// Package cart implements the shopping cart: a quantity map keyed by product
// ID. A Cart is not safe for concurrent use; each session owns its own.
package cart

import (
	"context"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/receipt"
)

type entry struct {
	product  product.Product
	quantity int
}

// Cart holds selected products and their quantities. Every stored quantity is
// at least one; entries that drop to zero are deleted.
type Cart struct {
	entries map[string]*entry
	order   []string // product IDs in insertion order
	now     func() time.Time
}

// New returns an empty Cart.
func New() *Cart {
	return &Cart{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Add puts quantity units of p into the cart, accumulating onto an existing
// entry. Non-positive quantities, the zero Product and additions that would
// overflow the stored quantity are ignored.
func (c *Cart) Add(p product.Product, quantity int) {
	if quantity <= 0 || p.IsZero() {
		return
	}
	id := key(p)
	if e, ok := c.entries[id]; ok {
		if quantity > math.MaxInt-e.quantity {
			return
		}
		e.quantity += quantity
		return
	}
	c.entries[id] = &entry{product: p, quantity: quantity}
	c.order = append(c.order, id)
}

// Remove takes quantity units of p out of the cart. The entry is deleted when
// its quantity does not exceed the requested amount.
func (c *Cart) Remove(p product.Product, quantity int) {
	if quantity <= 0 {
		return
	}
	id := key(p)
	e, ok := c.entries[id]
	if !ok {
		return
	}
	if e.quantity <= quantity {
		c.delete(id)
		return
	}
	e.quantity -= quantity
}

// RemoveOneByName decrements the first inserted entry whose product name
// equals name exactly. It reports whether an entry matched.
func (c *Cart) RemoveOneByName(name string) bool {
	for _, id := range c.order {
		e := c.entries[id]
		if e.product.Name != name {
			continue
		}
		if e.quantity > 1 {
			e.quantity--
		} else {
			c.delete(id)
		}
		return true
	}
	return false
}

// Quantity returns the quantity stored for the product ID, zero if absent.
func (c *Cart) Quantity(productID string) int {
	if e, ok := c.entries[productID]; ok {
		return e.quantity
	}
	return 0
}

// Len returns the number of distinct products in the cart.
func (c *Cart) Len() int {
	return len(c.order)
}

// IsEmpty reports whether the cart has no entries.
func (c *Cart) IsEmpty() bool {
	return len(c.order) == 0
}

// Total returns the exact sum of price times quantity over all entries.
// Rounding happens only when the amount is displayed.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, id := range c.order {
		e := c.entries[id]
		total = total.Add(e.product.Price.Mul(decimal.NewFromInt(int64(e.quantity))))
	}
	return total
}

// Contents returns one display line per entry in insertion order.
func (c *Cart) Contents() []receipt.Line {
	lines := make([]receipt.Line, 0, len(c.order))
	for _, id := range c.order {
		e := c.entries[id]
		lines = append(lines, receipt.NewLine(id, e.product.Name, e.product.Price, e.quantity))
	}
	return lines
}

// Clear removes every entry.
func (c *Cart) Clear() {
	clear(c.entries)
	c.order = c.order[:0]
}

// Checkout hands a purchase receipt of the current contents to w and empties
// the cart. The cart is emptied even when w fails: the returned receipt still
// carries the total and the error is returned alongside it. An empty cart
// yields an empty receipt and w is not called.
func (c *Cart) Checkout(ctx context.Context, w receipt.Writer) (receipt.Receipt, error) {
	r := c.receipt(receipt.KindPurchase)
	if r.IsEmpty() {
		return r, nil
	}
	defer c.Clear()

	if err := w.Write(ctx, r); err != nil {
		return r, errors.Wrap(err, "write receipt")
	}
	return r, nil
}

// Snapshot hands a snapshot receipt of the current contents to w without
// changing the cart.
func (c *Cart) Snapshot(ctx context.Context, w receipt.Writer) (receipt.Receipt, error) {
	r := c.receipt(receipt.KindSnapshot)
	if err := w.Write(ctx, r); err != nil {
		return r, errors.Wrap(err, "write snapshot")
	}
	return r, nil
}

func (c *Cart) receipt(kind receipt.Kind) receipt.Receipt {
	return receipt.New(kind, c.Contents(), c.Total(), c.now())
}

func (c *Cart) delete(id string) {
	delete(c.entries, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func key(p product.Product) string {
	if p.ID != "" {
		return p.ID
	}
	return product.IDFromName(p.Name)
}
