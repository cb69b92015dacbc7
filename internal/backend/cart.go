package backend

import (
	"context"
	"net/http"

	"github.com/quyennx102/storefront-bff/internal/domain"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart fetches the authoritative cart snapshot, including per-item stock
// and server-computed line subtotals.
func (c *Client) GetCart(ctx context.Context) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, http.MethodGet, "/carts", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) AddCartItem(ctx context.Context, productID string, quantity int) error {
	return c.do(ctx, http.MethodPost, "/carts/add", addCartItemRequest{
		ProductID: productID,
		Quantity:  quantity,
	}, nil)
}

func (c *Client) UpdateCartItem(ctx context.Context, itemID string, quantity int) error {
	return c.do(ctx, http.MethodPut, "/carts/"+itemID, updateCartItemRequest{
		Quantity: quantity,
	}, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/carts/"+itemID, nil, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/carts", nil, nil)
}
