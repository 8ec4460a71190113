package cart

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/receipt"
)

// --- Mock implementations ---

type mockWriter struct {
	written []receipt.Receipt
	err     error
}

func (m *mockWriter) Write(_ context.Context, r receipt.Receipt) error {
	m.written = append(m.written, r)
	return m.err
}

// --- Helpers ---

var (
	apple  = product.New("Apple", decimal.RequireFromString("0.99"), "Fruits")
	banana = product.New("Banana", decimal.RequireFromString("0.59"), "Fruits")
	milk   = product.New("Milk", decimal.RequireFromString("1.50"), "Dairy")
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// --- Tests ---

func TestCart_AddOverflowIgnored(t *testing.T) {
	c := New()
	c.Add(apple, math.MaxInt)
	c.Add(apple, 1)

	assert.Equal(t, math.MaxInt, c.Quantity(apple.ID))
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Total().IsPositive())

	c.Add(apple, math.MaxInt)
	assert.Equal(t, math.MaxInt, c.Quantity(apple.ID))

	// Other entries are unaffected.
	c.Add(milk, 2)
	assert.Equal(t, 2, c.Quantity(milk.ID))
}

func TestCart_AddAccumulates(t *testing.T) {
	c := New()
	c.Add(apple, 2)
	c.Add(apple, 3)

	assert.Equal(t, 5, c.Quantity("apple"))
	assert.Equal(t, 1, c.Len())
}

func TestCart_AddIgnoresInvalidInput(t *testing.T) {
	c := New()
	c.Add(apple, 1)

	c.Add(apple, 0)
	c.Add(apple, -3)
	c.Add(product.Product{}, 4)

	assert.Equal(t, 1, c.Quantity("apple"))
	assert.Equal(t, 1, c.Len())
}

func TestCart_AddRemoveRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 7, 100} {
		c := New()
		c.Add(milk, 2)
		before := c.Contents()

		c.Add(apple, n)
		c.Remove(apple, n)

		assert.Equal(t, before, c.Contents(), "n=%d", n)
	}

	// Round trip on an existing entry keeps its quantity.
	c := New()
	c.Add(apple, 3)
	c.Add(apple, 4)
	c.Remove(apple, 4)
	assert.Equal(t, 3, c.Quantity("apple"))
}

func TestCart_Remove(t *testing.T) {
	tests := []struct {
		name    string
		have    int
		remove  int
		wantQty int
		wantLen int
	}{
		{name: "partial", have: 5, remove: 2, wantQty: 3, wantLen: 1},
		{name: "exact deletes", have: 2, remove: 2, wantQty: 0, wantLen: 0},
		{name: "more than held deletes", have: 3, remove: 5, wantQty: 0, wantLen: 0},
		{name: "zero is no-op", have: 3, remove: 0, wantQty: 3, wantLen: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.Add(apple, tt.have)
			c.Remove(apple, tt.remove)

			assert.Equal(t, tt.wantQty, c.Quantity("apple"))
			assert.Equal(t, tt.wantLen, c.Len())
		})
	}
}

func TestCart_RemoveMissingIsNoop(t *testing.T) {
	c := New()
	c.Add(apple, 1)
	c.Remove(milk, 3)

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Quantity("apple"))
}

func TestCart_RemoveOneByName(t *testing.T) {
	c := New()
	c.Add(apple, 2)
	c.Add(milk, 1)

	require.True(t, c.RemoveOneByName("Apple"))
	assert.Equal(t, 1, c.Quantity("apple"))

	require.True(t, c.RemoveOneByName("Apple"))
	assert.Equal(t, 0, c.Quantity("apple"))
	assert.Equal(t, 1, c.Len())

	assert.False(t, c.RemoveOneByName("Apple"))
	assert.False(t, c.RemoveOneByName("milk"), "name match is case-sensitive")
	assert.Equal(t, 1, c.Quantity("milk"))
}

func TestCart_RemoveOneByNameFirstInserted(t *testing.T) {
	// Same display name under two IDs, as two catalogs could produce.
	first := product.Product{ID: "tea-1", Name: "Tea", Price: dec("1.00")}
	second := product.Product{ID: "tea-2", Name: "Tea", Price: dec("2.00")}

	c := New()
	c.Add(first, 1)
	c.Add(second, 1)

	require.True(t, c.RemoveOneByName("Tea"))
	assert.Equal(t, 0, c.Quantity("tea-1"))
	assert.Equal(t, 1, c.Quantity("tea-2"))
}

func TestCart_Total(t *testing.T) {
	c := New()
	assert.True(t, decimal.Zero.Equal(c.Total()))

	c.Add(apple, 3)
	c.Add(milk, 2)
	assert.True(t, dec("5.97").Equal(c.Total()), "got %s", c.Total())

	c.Remove(apple, 5)
	assert.True(t, dec("3.00").Equal(c.Total()), "got %s", c.Total())
}

func TestCart_TotalIsExact(t *testing.T) {
	c := New()
	c.Add(product.New("Dust", dec("0.001"), "Misc"), 7)
	c.Add(banana, 3)

	// 0.007 + 1.77, no intermediate rounding.
	assert.True(t, dec("1.777").Equal(c.Total()), "got %s", c.Total())

	var want decimal.Decimal
	for _, l := range c.Contents() {
		want = want.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	assert.True(t, want.Equal(c.Total()))
}

func TestCart_Contents(t *testing.T) {
	c := New()
	c.Add(milk, 2)
	c.Add(apple, 3)

	lines := c.Contents()
	require.Len(t, lines, 2)
	assert.Equal(t, "Milk - $1.50 x 2 = $3.00", lines[0].String())
	assert.Equal(t, "Apple - $0.99 x 3 = $2.97", lines[1].String())
	assert.Equal(t, "apple", lines[1].ProductID)

	// Reading contents does not mutate the cart.
	assert.Equal(t, lines, c.Contents())
}

func TestCart_Checkout(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	c := New()
	c.now = func() time.Time { return at }
	c.Add(apple, 3)
	c.Add(milk, 2)
	w := &mockWriter{}

	r, err := c.Checkout(context.Background(), w)
	require.NoError(t, err)

	assert.True(t, dec("5.97").Equal(r.Total))
	assert.Equal(t, receipt.KindPurchase, r.Kind)
	assert.Equal(t, at, r.CreatedAt)
	assert.Len(t, r.Lines, 2)
	assert.True(t, c.IsEmpty())
	assert.True(t, decimal.Zero.Equal(c.Total()))

	require.Len(t, w.written, 1)
	assert.Equal(t, r.ID, w.written[0].ID)
	assert.Len(t, w.written[0].Lines, 2, "writer sees the pre-clear snapshot")
}

func TestCart_CheckoutWriterFailureStillClears(t *testing.T) {
	c := New()
	c.Add(apple, 1)
	w := &mockWriter{err: errors.New("disk full")}

	r, err := c.Checkout(context.Background(), w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, dec("0.99").Equal(r.Total))
	assert.True(t, c.IsEmpty())
}

func TestCart_CheckoutEmpty(t *testing.T) {
	c := New()
	w := &mockWriter{}

	r, err := c.Checkout(context.Background(), w)
	require.NoError(t, err)
	assert.True(t, r.IsEmpty())
	assert.True(t, decimal.Zero.Equal(r.Total))
	assert.Empty(t, w.written)
}

func TestCart_CheckoutThenReuse(t *testing.T) {
	c := New()
	c.Add(apple, 1)
	_, err := c.Checkout(context.Background(), &mockWriter{})
	require.NoError(t, err)

	c.Add(milk, 1)
	assert.Equal(t, []string{"Milk - $1.50 x 1 = $1.50"}, []string{c.Contents()[0].String()})
}

func TestCart_Snapshot(t *testing.T) {
	c := New()
	c.Add(banana, 2)
	w := &mockWriter{}

	r, err := c.Snapshot(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, receipt.KindSnapshot, r.Kind)
	assert.True(t, dec("1.18").Equal(r.Total))
	assert.Equal(t, 2, c.Quantity("banana"), "snapshot keeps the cart")
	require.Len(t, w.written, 1)

	_, err = c.Snapshot(context.Background(), &mockWriter{err: errors.New("boom")})
	require.Error(t, err)
}
