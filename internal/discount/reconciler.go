// Package discount validates user-entered codes against the remote
// authority and carries the resulting grant from the cart page to checkout.
package discount

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quyennx102/storefront-bff/internal/domain"
	"github.com/quyennx102/storefront-bff/internal/session"
)

var (
	ErrEmptyCode     = errors.New("discount code is empty")
	ErrEmptyCart     = errors.New("cart is empty, nothing to discount")
	ErrApplyInFlight = errors.New("a discount validation is already in flight")
)

// Validator is the remote discount authority.
type Validator interface {
	ValidateDiscount(ctx context.Context, code, storeID string, subtotal int64) (*domain.DiscountGrant, error)
}

// Reconciler holds the single currently-applied grant for one session. At
// most one grant is active at a time; a successful Apply replaces it, a
// failed one leaves it untouched. The grant is never retried automatically.
type Reconciler struct {
	validator Validator
	store     session.Store
	sessionID string
	logger    *slog.Logger

	mu       sync.Mutex
	grant    *domain.DiscountGrant
	applying bool
}

func NewReconciler(validator Validator, store session.Store, sessionID string, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		validator: validator,
		store:     store,
		sessionID: sessionID,
		logger:    logger,
	}
}

// Apply validates code for the given cart. The store id comes from the
// first line item: the flow assumes a single-store cart, and a multi-store
// cart's discount behavior is deliberately left undefined.
func (r *Reconciler) Apply(ctx context.Context, cart *domain.Cart, code string) (*domain.DiscountGrant, error) {
	if code == "" {
		return nil, ErrEmptyCode
	}
	if cart.Empty() {
		return nil, ErrEmptyCart
	}

	r.mu.Lock()
	if r.applying {
		r.mu.Unlock()
		return nil, ErrApplyInFlight
	}
	r.applying = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.applying = false
		r.mu.Unlock()
	}()

	grant, err := r.validator.ValidateDiscount(ctx, code, cart.StoreID(), cart.Subtotal())
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.grant = grant
	r.mu.Unlock()

	r.logger.Info("discount applied", "code", grant.Code, "amount", grant.Amount)
	return grant, nil
}

// Grant returns the currently held grant, or nil.
func (r *Reconciler) Grant() *domain.DiscountGrant {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.grant == nil {
		return nil
	}
	copied := *r.grant
	return &copied
}

// Remove clears the held grant and any pending handoff slot. Idempotent.
func (r *Reconciler) Remove(ctx context.Context) error {
	r.mu.Lock()
	r.grant = nil
	r.mu.Unlock()

	if err := r.store.Delete(ctx, session.HandoffKey(r.sessionID)); err != nil {
		return fmt.Errorf("clear handoff slot: %w", err)
	}
	return nil
}

// Handoff serializes the current grant into the cross-page slot immediately
// before navigating to checkout. With no grant held it clears the slot, so
// an earlier abandoned handoff cannot resurface.
func (r *Reconciler) Handoff(ctx context.Context) error {
	grant := r.Grant()
	if grant == nil {
		return r.Remove(ctx)
	}

	data, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("marshal grant: %w", err)
	}
	if err := r.store.Set(ctx, session.HandoffKey(r.sessionID), data, session.HandoffTTL); err != nil {
		return fmt.Errorf("write handoff slot: %w", err)
	}
	return nil
}

// ConsumeHandoff reads the handed-off grant exactly once, on checkout
// mount. Later reads return nil: consumed data must not reappear.
func (r *Reconciler) ConsumeHandoff(ctx context.Context) (*domain.DiscountGrant, error) {
	data, err := r.store.TakeOnce(ctx, session.HandoffKey(r.sessionID))
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read handoff slot: %w", err)
	}

	var grant domain.DiscountGrant
	if err := json.Unmarshal(data, &grant); err != nil {
		return nil, fmt.Errorf("unmarshal handed-off grant: %w", err)
	}
	return &grant, nil
}
