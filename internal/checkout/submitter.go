// Package checkout turns a shipping draft, the cart's line items and an
// optionally carried discount into one order-creation request, then
// branches on the payment method.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/quyennx102/storefront-bff/internal/backend"
	"github.com/quyennx102/storefront-bff/internal/domain"
	"github.com/quyennx102/storefront-bff/internal/session"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

// FieldError is a client-side validation failure. It is raised before any
// network call and names the offending form field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// PendingPaymentError is the known inconsistency window: the order was
// created but the payment-session request failed. The orders exist in a
// pending-payment state on the backend; reconciliation is server-side.
type PendingPaymentError struct {
	Orders []domain.Order
	Err    error
}

func (e *PendingPaymentError) Error() string {
	return fmt.Sprintf("order created but payment initiation failed: %v", e.Err)
}

func (e *PendingPaymentError) Unwrap() error { return e.Err }

// OrdersAPI creates orders on the backend.
type OrdersAPI interface {
	CreateOrder(ctx context.Context, req backend.CreateOrderRequest) ([]domain.Order, error)
}

// PaymentAPI requests hosted payment-session URLs from wallet providers.
type PaymentAPI interface {
	CreateSession(ctx context.Context, method domain.PaymentMethod, orderID string, amount int64) (string, error)
}

// Result is the outcome of a successful submission. RedirectURL is empty
// for cash on delivery, where the UI goes straight to the confirmation
// view; otherwise it is the provider's hosted checkout page.
type Result struct {
	Orders      []domain.Order
	Primary     domain.Order
	RedirectURL string
}

type Submitter struct {
	orders    OrdersAPI
	payments  PaymentAPI
	store     session.Store
	sessionID string
	logger    *slog.Logger
}

func NewSubmitter(orders OrdersAPI, payments PaymentAPI, store session.Store, sessionID string, logger *slog.Logger) *Submitter {
	return &Submitter{
		orders:    orders,
		payments:  payments,
		store:     store,
		sessionID: sessionID,
		logger:    logger,
	}
}

// Validate checks the required shipping fields, failing fast with a
// field-specific message before anything touches the network.
func Validate(draft domain.OrderDraft) error {
	if strings.TrimSpace(draft.Name) == "" {
		return &FieldError{Field: "name", Message: "recipient name is required"}
	}
	if strings.TrimSpace(draft.Phone) == "" {
		return &FieldError{Field: "phone", Message: "phone number is required"}
	}
	if strings.TrimSpace(draft.Address) == "" {
		return &FieldError{Field: "address", Message: "shipping address is required"}
	}
	if !draft.Method.Valid() {
		return &FieldError{Field: "payment_method", Message: "unsupported payment method"}
	}
	return nil
}

// Submit consumes the draft exactly once. The response may contain several
// orders when the backend splits the cart per store; the first is treated
// as primary and is the only one a payment session is initiated for.
func (s *Submitter) Submit(ctx context.Context, draft domain.OrderDraft, items []domain.LineItem, grant *domain.DiscountGrant) (*Result, error) {
	if err := Validate(draft); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	req := backend.CreateOrderRequest{
		Name:           draft.Name,
		Phone:          draft.Phone,
		Address:        draft.Address,
		City:           draft.City,
		State:          draft.State,
		Postcode:       draft.Postcode,
		Notes:          draft.Notes,
		PaymentMethod:  draft.Method,
		IdempotencyKey: uuid.New().String(),
	}
	if grant != nil {
		req.DiscountCode = grant.Code
	}

	orders, err := s.orders.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, errors.New("backend returned no orders")
	}

	// The carried discount is spent the moment the order exists,
	// whichever payment branch follows.
	if err := s.store.Delete(ctx, session.HandoffKey(s.sessionID)); err != nil {
		s.logger.Error("failed to clear discount handoff slot", "error", err)
	}

	primary := orders[0]
	s.logger.Info("order created",
		"order_id", primary.ID,
		"order_count", len(orders),
		"payment_method", draft.Method,
	)

	if draft.Method == domain.PaymentCashOnDelivery {
		return &Result{Orders: orders, Primary: primary}, nil
	}

	redirectURL, err := s.payments.CreateSession(ctx, draft.Method, primary.ID, primary.Total)
	if err != nil {
		s.logger.Error("payment initiation failed after order creation",
			"error", err,
			"order_id", primary.ID,
		)
		return nil, &PendingPaymentError{Orders: orders, Err: err}
	}

	return &Result{Orders: orders, Primary: primary, RedirectURL: redirectURL}, nil
}
