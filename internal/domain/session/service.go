package session

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/receipt"
)

// ErrNoHistory is returned by History when no receipt history is configured.
var ErrNoHistory = errors.New("purchase history not available")

// CartView is a read-only copy of a session cart.
type CartView struct {
	ID    string
	Lines []receipt.Line
	Total decimal.Decimal
}

// CheckoutResult describes a completed checkout. The cart is empty whether or
// not the receipt was persisted.
type CheckoutResult struct {
	Receipt   receipt.Receipt
	Persisted bool
}

// Service implements the storefront use cases on top of a catalog, a
// session store and the receipt collaborators.
type Service struct {
	catalog *product.Catalog
	store   *Store
	writer  receipt.Writer
	history receipt.History

	checkouts     metric.Int64Counter
	writeFailures metric.Int64Counter
}

// NewService creates a Service. history may be nil.
func NewService(
	catalog *product.Catalog,
	store *Store,
	writer receipt.Writer,
	history receipt.History,
	mp metric.MeterProvider,
) (*Service, error) {
	meter := mp.Meter("github.com/xenking/storefront/internal/domain/session")

	checkouts, err := meter.Int64Counter("storefront.checkouts",
		metric.WithDescription("Completed non-empty checkouts"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "checkouts counter")
	}
	writeFailures, err := meter.Int64Counter("storefront.receipt_write_failures",
		metric.WithDescription("Receipts that could not be persisted"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "write failures counter")
	}
	if _, err := meter.Int64ObservableGauge("storefront.open_carts",
		metric.WithDescription("Open cart sessions"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(store.Len()))
			return nil
		}),
	); err != nil {
		return nil, errors.Wrap(err, "open carts gauge")
	}

	return &Service{
		catalog:       catalog,
		store:         store,
		writer:        writer,
		history:       history,
		checkouts:     checkouts,
		writeFailures: writeFailures,
	}, nil
}

// Catalog returns the shared read-only catalog.
func (s *Service) Catalog() *product.Catalog {
	return s.catalog
}

// NewCart opens a session with an empty cart.
func (s *Service) NewCart() (CartView, error) {
	sess, err := s.store.Create()
	if err != nil {
		return CartView{}, err
	}
	return CartView{ID: sess.ID, Lines: []receipt.Line{}, Total: decimal.Zero}, nil
}

// Cart returns the current contents of a session cart.
func (s *Service) Cart(id string) (CartView, error) {
	return s.update(id, func(*cart.Cart) {})
}

// AddItem adds quantity units of the named product. Unknown names and
// non-positive quantities leave the cart unchanged.
func (s *Service) AddItem(id, name string, quantity int) (CartView, error) {
	p, _ := s.catalog.ByName(name)
	return s.update(id, func(c *cart.Cart) {
		c.Add(p, quantity)
	})
}

// RemoveItem removes quantity units of the named product. A non-positive
// quantity removes a single unit.
func (s *Service) RemoveItem(id, name string, quantity int) (CartView, error) {
	p, found := s.catalog.ByName(name)
	return s.update(id, func(c *cart.Cart) {
		switch {
		case quantity > 0 && found:
			c.Remove(p, quantity)
		case quantity <= 0 && found:
			c.RemoveOneByName(p.Name)
		case quantity <= 0:
			c.RemoveOneByName(name)
		}
	})
}

// Checkout checks the session cart out. A receipt persistence failure is
// logged and reported through CheckoutResult.Persisted; the cart is cleared
// regardless.
func (s *Service) Checkout(ctx context.Context, id string) (*CheckoutResult, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	var (
		r        receipt.Receipt
		writeErr error
	)
	// The cart is cleared either way, so the write must outlive a client
	// that goes away mid-request.
	sess.With(func(c *cart.Cart) {
		r, writeErr = c.Checkout(context.WithoutCancel(ctx), s.writer)
	})

	lg := zctx.From(ctx).With(
		zap.String("cart_id", id),
		zap.String("receipt_id", r.ID),
		zap.String("total", r.Total.StringFixed(2)),
	)
	if r.IsEmpty() {
		lg.Info("Checkout of empty cart")
		return &CheckoutResult{Receipt: r}, nil
	}

	persisted := writeErr == nil
	s.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("persisted", persisted)))
	if !persisted {
		s.writeFailures.Add(ctx, 1)
		lg.Error("Receipt not persisted, cart already cleared", zap.Error(writeErr))
	} else {
		lg.Info("Checkout completed", zap.Int("lines", len(r.Lines)))
	}

	return &CheckoutResult{Receipt: r, Persisted: persisted}, nil
}

// SaveSnapshot persists the current cart contents without clearing them.
func (s *Service) SaveSnapshot(ctx context.Context, id string) (receipt.Receipt, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return receipt.Receipt{}, err
	}

	var r receipt.Receipt
	err = sess.Do(func(c *cart.Cart) error {
		var err error
		r, err = c.Snapshot(ctx, s.writer)
		return err
	})
	if err != nil {
		return r, err
	}
	zctx.From(ctx).Info("Cart saved",
		zap.String("cart_id", id),
		zap.String("receipt_id", r.ID),
	)
	return r, nil
}

// DropCart closes the session.
func (s *Service) DropCart(id string) error {
	if !s.store.Delete(id) {
		return ErrNotFound
	}
	return nil
}

// History returns up to limit recent purchase receipts.
func (s *Service) History(ctx context.Context, limit int) ([]receipt.Receipt, error) {
	if s.history == nil {
		return nil, ErrNoHistory
	}
	receipts, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "recent receipts")
	}
	return receipts, nil
}

func (s *Service) update(id string, f func(c *cart.Cart)) (CartView, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return CartView{}, err
	}

	view := CartView{ID: id}
	sess.With(func(c *cart.Cart) {
		f(c)
		view.Lines = c.Contents()
		view.Total = c.Total()
	})
	return view, nil
}
