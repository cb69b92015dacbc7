package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/quyennx102/storefront-bff/internal/domain"
)

// CreateOrderRequest is the single order-creation call assembled by the
// checkout submitter: shipping fields, payment method and the carried
// discount code. The backend may split the cart into one order per store.
type CreateOrderRequest struct {
	Name           string               `json:"name"`
	Phone          string               `json:"phone"`
	Address        string               `json:"address"`
	City           string               `json:"city,omitempty"`
	State          string               `json:"state,omitempty"`
	Postcode       string               `json:"postcode,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	PaymentMethod  domain.PaymentMethod `json:"payment_method"`
	DiscountCode   string               `json:"discount_code,omitempty"`
	IdempotencyKey string               `json:"idempotency_key"`
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) ([]domain.Order, error) {
	var orders []domain.Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetProfile fetches the authenticated user's profile, used to pre-fill
// checkout drafts and cached in the session store.
func (c *Client) GetProfile(ctx context.Context) (*domain.Profile, error) {
	var profile domain.Profile
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListNotifications is the polling fallback for the push channel. A zero
// after fetches the full recent window.
func (c *Client) ListNotifications(ctx context.Context, after time.Time) ([]domain.Notification, error) {
	path := "/notifications"
	if !after.IsZero() {
		path += "?after=" + url.QueryEscape(after.UTC().Format(time.RFC3339Nano))
	}

	var notifications []domain.Notification
	if err := c.do(ctx, http.MethodGet, path, nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}
