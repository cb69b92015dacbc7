package domain

// DiscountGrant is the validated, amount-bearing result of applying a code.
// Amount is computed by the backend against the subtotal and store it was
// validated for; at most one grant is active at a time.
type DiscountGrant struct {
	Code    string `json:"code"`
	StoreID string `json:"store_id"`
	Amount  int64  `json:"amount"`
	Message string `json:"message,omitempty"`
}
