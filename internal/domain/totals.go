package domain

// Totals is the derived pricing breakdown for the cart. It is never
// persisted; it is recomputed synchronously whenever the line items or the
// discount grant change.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}
