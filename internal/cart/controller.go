// Package cart owns the session's authoritative line-item list. Every
// mutation goes to the remote cart store first and then re-fetches the
// snapshot, so local state always reconciles against the server instead of
// drifting on optimistic updates.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/quyennx102/storefront-bff/internal/domain"
	"github.com/quyennx102/storefront-bff/internal/pricing"
)

var (
	ErrQuantityTooLow       = errors.New("quantity must be at least 1")
	ErrInsufficientStock    = errors.New("requested quantity exceeds available stock")
	ErrMutationInFlight     = errors.New("another change to this item is still pending")
	ErrConfirmationDeclined = errors.New("confirmation declined")
)

// API is the remote cart store.
type API interface {
	GetCart(ctx context.Context) (*domain.Cart, error)
	AddCartItem(ctx context.Context, productID string, quantity int) error
	UpdateCartItem(ctx context.Context, itemID string, quantity int) error
	RemoveCartItem(ctx context.Context, itemID string) error
	ClearCart(ctx context.Context) error
}

// ConfirmFunc is the blocking yes/no prompt shown before destructive
// operations.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Controller mediates cart mutations for one session. One mutation per
// distinct resource may be in flight at a time; a second change to the same
// line item is rejected, not queued. Unrelated items mutate independently.
type Controller struct {
	api       API
	confirm   ConfirmFunc
	onEmptied func(ctx context.Context) error
	logger    *slog.Logger

	sfg singleflight.Group

	mu       sync.Mutex
	snapshot *domain.Cart
	inFlight map[string]struct{}
}

func NewController(api API, confirm ConfirmFunc, onEmptied func(ctx context.Context) error, logger *slog.Logger) *Controller {
	return &Controller{
		api:       api,
		confirm:   confirm,
		onEmptied: onEmptied,
		logger:    logger,
		inFlight:  make(map[string]struct{}),
	}
}

// Refresh fetches the authoritative snapshot. Concurrent refreshes collapse
// into a single backend call.
func (c *Controller) Refresh(ctx context.Context) (*domain.Cart, error) {
	v, err, _ := c.sfg.Do("cart", func() (any, error) {
		cart, err := c.api.GetCart(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.snapshot = cart
		c.mu.Unlock()
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// Snapshot returns the last reconciled cart, or nil before the first fetch.
func (c *Controller) Snapshot() *domain.Cart {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot == nil {
		return nil
	}
	copied := *c.snapshot
	copied.Items = append([]domain.LineItem(nil), c.snapshot.Items...)
	return &copied
}

// Totals derives the display totals for the current snapshot and grant.
// Never persisted; recomputed on every call so it cannot drift.
func (c *Controller) Totals(grant *domain.DiscountGrant) domain.Totals {
	snapshot := c.Snapshot()
	if snapshot == nil {
		return pricing.Compute(nil, grant)
	}
	return pricing.Compute(snapshot.Items, grant)
}

// Updating reports whether a mutation for the given line item is pending.
// The UI disables the row's controls while this is true.
func (c *Controller) Updating(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, busy := c.inFlight["item:"+itemID]
	return busy
}

// AddItem validates the requested quantity against the stock known to the
// caller before any network call. The server remains the final authority.
func (c *Controller) AddItem(ctx context.Context, productID string, quantity, knownStock int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, ErrQuantityTooLow
	}
	if knownStock == 0 || quantity > knownStock {
		return nil, ErrInsufficientStock
	}

	release, err := c.acquire("product:" + productID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := c.api.AddCartItem(ctx, productID, quantity); err != nil {
		return nil, err
	}

	c.logger.Info("cart item added", "product_id", productID, "quantity", quantity)
	return c.reconcile(ctx)
}

// UpdateQuantity rejects newQuantity < 1 without issuing a request. There
// is no client-side upper clamp beyond the stock shown per item; the server
// may still reject.
func (c *Controller) UpdateQuantity(ctx context.Context, itemID string, newQuantity int) (*domain.Cart, error) {
	if newQuantity < 1 {
		return nil, ErrQuantityTooLow
	}

	release, err := c.acquire("item:" + itemID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := c.api.UpdateCartItem(ctx, itemID, newQuantity); err != nil {
		return nil, err
	}

	c.logger.Info("cart quantity updated", "item_id", itemID, "quantity", newQuantity)
	return c.reconcile(ctx)
}

// RemoveItem deletes one line item after confirmation. If the cart becomes
// empty the discount hook fires: a discount cannot outlive its cart.
func (c *Controller) RemoveItem(ctx context.Context, itemID string) (*domain.Cart, error) {
	if !c.confirm(ctx, "Remove this item from your cart?") {
		return nil, ErrConfirmationDeclined
	}

	release, err := c.acquire("item:" + itemID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := c.api.RemoveCartItem(ctx, itemID); err != nil {
		return nil, err
	}

	c.logger.Info("cart item removed", "item_id", itemID)
	return c.reconcile(ctx)
}

// Clear empties the whole cart after confirmation and always drops any held
// discount.
func (c *Controller) Clear(ctx context.Context) (*domain.Cart, error) {
	if !c.confirm(ctx, "Remove all items from your cart?") {
		return nil, ErrConfirmationDeclined
	}

	release, err := c.acquire("cart")
	if err != nil {
		return nil, err
	}
	defer release()

	if err := c.api.ClearCart(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("cart cleared")
	return c.reconcile(ctx)
}

func (c *Controller) acquire(resource string) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inFlight[resource]; busy {
		return nil, ErrMutationInFlight
	}
	c.inFlight[resource] = struct{}{}

	return func() {
		c.mu.Lock()
		delete(c.inFlight, resource)
		c.mu.Unlock()
	}, nil
}

// reconcile re-fetches the cart after a successful mutation and fires the
// emptied hook when the last item is gone.
func (c *Controller) reconcile(ctx context.Context) (*domain.Cart, error) {
	// Drop any fetch that started before the mutation so the reconcile
	// cannot join a stale in-flight GET.
	c.sfg.Forget("cart")

	cart, err := c.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile cart after mutation: %w", err)
	}

	if cart.Empty() && c.onEmptied != nil {
		if err := c.onEmptied(ctx); err != nil {
			c.logger.Error("failed to clear discount for emptied cart", "error", err)
		}
	}

	return cart, nil
}
