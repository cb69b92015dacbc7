package domain

import "time"

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cod"
	PaymentMomo           PaymentMethod = "momo"
	PaymentZaloPay        PaymentMethod = "zalopay"
)

// Valid reports whether m is one of the supported payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentMomo, PaymentZaloPay:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// Order is one created order record. A checkout may split the cart into
// several orders (per store); each carries its own totals.
type Order struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	StoreID   string        `json:"store_id"`
	Items     []OrderItem   `json:"items"`
	Subtotal  int64         `json:"subtotal"`
	Discount  int64         `json:"discount"`
	Tax       int64         `json:"tax"`
	Total     int64         `json:"total"`
	Method    PaymentMethod `json:"payment_method"`
	Status    OrderStatus   `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// OrderDraft is the checkout form's working state. Name, Phone and Address
// are required; the rest is optional. A draft is consumed exactly once by
// checkout submission.
type OrderDraft struct {
	Name     string        `json:"name"`
	Phone    string        `json:"phone"`
	Address  string        `json:"address"`
	City     string        `json:"city,omitempty"`
	State    string        `json:"state,omitempty"`
	Postcode string        `json:"postcode,omitempty"`
	Notes    string        `json:"notes,omitempty"`
	Method   PaymentMethod `json:"payment_method"`
}
