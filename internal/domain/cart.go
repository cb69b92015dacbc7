package domain

import "time"

// LineItem is one product-quantity pairing in the cart. UnitPrice and
// Subtotal are server-authoritative minor units; Subtotal is recomputed by
// the backend on every mutation and trusted as returned.
type LineItem struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	StoreID   string    `json:"store_id"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	Stock     int       `json:"stock"`
	Subtotal  int64     `json:"subtotal"`
	AddedAt   time.Time `json:"added_at"`
}

// Cart is the backend's snapshot of the session cart.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []LineItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Empty reports whether the cart holds no line items.
func (c *Cart) Empty() bool {
	return c == nil || len(c.Items) == 0
}

// StoreID returns the store of the first line item. The flow assumes a
// single-store cart; a multi-store cart's discount behavior is undefined.
func (c *Cart) StoreID() string {
	if c.Empty() {
		return ""
	}
	return c.Items[0].StoreID
}

// Subtotal sums the server-computed line subtotals.
func (c *Cart) Subtotal() int64 {
	if c == nil {
		return 0
	}
	var sum int64
	for _, item := range c.Items {
		sum += item.Subtotal
	}
	return sum
}
